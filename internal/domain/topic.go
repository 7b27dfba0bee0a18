package domain

import (
	"fmt"

	"github.com/kafkagov/controlplane/internal/apperrors"
)

// maxResourceNameLength is the naming policy's hard ceiling (spec.md §4.B),
// enforced here too since Kafka itself rejects names over this length.
const maxResourceNameLength = 249

// TopicConfig is immutable Kafka topic configuration.
type TopicConfig struct {
	Partitions        int
	ReplicationFactor int
	CleanupPolicy     string
	RetentionMs       *int64
	MinInsyncReplicas *int
	MaxMessageBytes   *int64
	SegmentMs         *int64
	CompressionType   string
}

// NewTopicConfig validates and constructs a TopicConfig.
func NewTopicConfig(c TopicConfig) (TopicConfig, error) {
	if c.Partitions < 1 {
		return TopicConfig{}, apperrors.Invariant("partitions must be >= 1, got %d", c.Partitions)
	}
	if c.ReplicationFactor < 1 {
		return TopicConfig{}, apperrors.Invariant("replication_factor must be >= 1, got %d", c.ReplicationFactor)
	}
	if c.MinInsyncReplicas != nil && *c.MinInsyncReplicas > c.ReplicationFactor {
		return TopicConfig{}, apperrors.Invariant(
			"min_insync_replicas (%d) must be <= replication_factor (%d)",
			*c.MinInsyncReplicas, c.ReplicationFactor,
		)
	}
	if c.CleanupPolicy == "" {
		c.CleanupPolicy = "delete"
	}
	return c, nil
}

// ToKafkaConfig renders the config as Kafka's wire representation: string
// keys using dotted topic-config names, string values using the client's
// canonical numeric encoding (spec.md §4.E.2).
func (c TopicConfig) ToKafkaConfig() map[string]string {
	out := map[string]string{
		"cleanup.policy":      c.CleanupPolicy,
	}
	if c.RetentionMs != nil {
		out["retention.ms"] = fmt.Sprintf("%d", *c.RetentionMs)
	}
	if c.MinInsyncReplicas != nil {
		out["min.insync.replicas"] = fmt.Sprintf("%d", *c.MinInsyncReplicas)
	}
	if c.MaxMessageBytes != nil {
		out["max.message.bytes"] = fmt.Sprintf("%d", *c.MaxMessageBytes)
	}
	if c.SegmentMs != nil {
		out["segment.ms"] = fmt.Sprintf("%d", *c.SegmentMs)
	}
	if c.CompressionType != "" {
		out["compression.type"] = c.CompressionType
	}
	return out
}

// TopicMetadata is the ownership/documentation envelope persisted alongside
// a topic, independent of its Kafka-side configuration.
type TopicMetadata struct {
	Owners []string
	Doc    string
	Tags   []string
}

// TopicSpec is an immutable declarative request against one topic.
type TopicSpec struct {
	Name     string
	Action   Action
	Config   *TopicConfig
	Metadata *TopicMetadata
}

// NewTopicSpec validates and constructs a TopicSpec.
func NewTopicSpec(s TopicSpec) (TopicSpec, error) {
	if s.Name == "" {
		return TopicSpec{}, apperrors.Invariant("topic name must not be empty")
	}
	if len(s.Name) > maxResourceNameLength {
		return TopicSpec{}, apperrors.Invariant("topic name %q exceeds %d characters", s.Name, maxResourceNameLength)
	}
	if !s.Action.Valid() {
		return TopicSpec{}, apperrors.Invariant("invalid topic action %q", s.Action)
	}
	if s.Action == ActionDelete {
		if s.Config != nil {
			return TopicSpec{}, apperrors.Invariant("DELETE spec for %q must not carry a config", s.Name)
		}
	} else {
		if s.Config == nil {
			return TopicSpec{}, apperrors.Invariant("%s spec for %q requires a config", s.Action, s.Name)
		}
		if s.Metadata == nil {
			return TopicSpec{}, apperrors.Invariant("%s spec for %q requires metadata", s.Action, s.Name)
		}
	}
	return s, nil
}

func (s TopicSpec) SpecName() string { return s.Name }

func (s TopicSpec) SpecEnvironment() Environment { return EnvironmentOf(s.Name) }

// Fingerprint hashes the spec's full content, including action and config,
// so any change to the desired state changes the fingerprint.
func (s TopicSpec) Fingerprint() string {
	type canon struct {
		Name   string
		Action Action
		Config *TopicConfig
		Meta   *TopicMetadata
	}
	return fingerprint(canon{s.Name, s.Action, s.Config, s.Metadata})
}
