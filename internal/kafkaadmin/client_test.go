package kafkaadmin_test

import (
	"testing"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }

// TestTopicConfig_ToKafkaConfig exercises the wire-representation mapping
// the Kafka admin adapter relies on to build AlterConfig requests.
func TestTopicConfig_ToKafkaConfig(t *testing.T) {
	t.Parallel()

	cfg, err := domain.NewTopicConfig(domain.TopicConfig{
		Partitions:        6,
		ReplicationFactor: 2,
		CleanupPolicy:     "delete",
		RetentionMs:       int64p(86400000),
		MinInsyncReplicas: intp(1),
		CompressionType:   "lz4",
	})
	require.NoError(t, err)

	kafkaCfg := cfg.ToKafkaConfig()
	require.Equal(t, "86400000", kafkaCfg["retention.ms"])
	require.Equal(t, "1", kafkaCfg["min.insync.replicas"])
	require.Equal(t, "delete", kafkaCfg["cleanup.policy"])
	require.Equal(t, "lz4", kafkaCfg["compression.type"])
	require.NotContains(t, kafkaCfg, "segment.ms")
}
