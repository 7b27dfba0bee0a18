package metricscollector_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
	"github.com/kafkagov/controlplane/internal/metricscollector"
)

type fakeAdmin struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAdmin) DescribeCluster(context.Context) (kafkaadmin.ClusterDescription, error) {
	return kafkaadmin.ClusterDescription{Brokers: []kafkaadmin.BrokerInfo{{NodeID: 1}, {NodeID: 2}}}, nil
}

func (f *fakeAdmin) ListTopics(context.Context) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return []string{"dev.orders"}, nil
}

func (f *fakeAdmin) DescribeTopics(_ context.Context, names []string) (map[string]kafkaadmin.TopicDescription, error) {
	return map[string]kafkaadmin.TopicDescription{
		"dev.orders": {
			PartitionCount: 2, ReplicationFactor: 3,
			Partitions: []kafkaadmin.PartitionDescription{
				{ID: 0, Leader: 1, Replicas: []int32{1, 2, 3}, ISR: []int32{1, 2, 3}},
				{ID: 1, Leader: 2, Replicas: []int32{2, 3, 1}, ISR: []int32{2, 3, 1}},
			},
		},
	}, nil
}

func (f *fakeAdmin) DescribeLogDirs(context.Context, []string) (map[string]map[int32]kafkaadmin.PartitionLogDir, error) {
	return map[string]map[int32]kafkaadmin.PartitionLogDir{
		"dev.orders": {
			0: {Size: 1000, OffsetLag: 0},
			1: {Size: 2000, OffsetLag: 5},
		},
	}, nil
}

type fakeSnapshotStore struct {
	mu    sync.Mutex
	saved []domain.MetricsSnapshot
}

func (f *fakeSnapshotStore) SaveMetricsSnapshot(_ context.Context, snap domain.MetricsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, snap)
	return nil
}

func (f *fakeSnapshotStore) GetLatestMetricsSnapshot(context.Context, string) (*domain.MetricsSnapshot, error) {
	return nil, nil
}

func (f *fakeSnapshotStore) DeleteMetricsSnapshotsOlderThan(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeSnapshotStore) ListActiveClusterIDs(context.Context) ([]string, error) {
	return []string{"cluster-a", "cluster-b"}, nil
}

func TestCollector_GetAssemblesAndCachesL1(t *testing.T) {
	t.Parallel()

	admin := &fakeAdmin{}
	resolver := func(context.Context, string) (metricscollector.KafkaAdmin, error) { return admin, nil }
	st := &fakeSnapshotStore{}
	c := metricscollector.New(resolver, st, nil, 0)

	snap, err := c.Get(context.Background(), "cluster-a")
	require.NoError(t, err)
	require.Equal(t, 2, snap.BrokerCount)
	require.Equal(t, 2, snap.TotalPartitions)
	require.Equal(t, 1.0, snap.PartitionToBrokerRatio())

	min, max, avg := snap.TopicPartitionSizes("dev.orders")
	require.Equal(t, int64(1000), min)
	require.Equal(t, int64(2000), max)
	require.Equal(t, 1500.0, avg)

	_, err = c.Get(context.Background(), "cluster-a")
	require.NoError(t, err)
	require.Equal(t, 1, admin.calls, "second Get should be served from L1 without a new Kafka round-trip")
}

func TestCollector_CollectPersistsToL3(t *testing.T) {
	t.Parallel()

	admin := &fakeAdmin{}
	resolver := func(context.Context, string) (metricscollector.KafkaAdmin, error) { return admin, nil }
	st := &fakeSnapshotStore{}
	c := metricscollector.New(resolver, st, nil, 0)

	require.NoError(t, c.Collect(context.Background(), "cluster-a"))
	require.Len(t, st.saved, 1)
	require.Equal(t, "cluster-a", st.saved[0].ClusterID)
}

func TestCollector_CollectAllFansOutAcrossActiveClusters(t *testing.T) {
	t.Parallel()

	admin := &fakeAdmin{}
	resolver := func(context.Context, string) (metricscollector.KafkaAdmin, error) { return admin, nil }
	st := &fakeSnapshotStore{}
	c := metricscollector.New(resolver, st, nil, 4)

	errs := c.CollectAll(context.Background())
	require.Len(t, errs, 2)
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, st.saved, 2)
}

func TestCollector_CleanupUsesConfiguredRetention(t *testing.T) {
	t.Parallel()

	admin := &fakeAdmin{}
	resolver := func(context.Context, string) (metricscollector.KafkaAdmin, error) { return admin, nil }
	st := &fakeSnapshotStore{}
	c := metricscollector.New(resolver, st, nil, 0)

	n, err := c.Cleanup(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
