// Package metricscollector assembles and serves per-cluster metrics
// snapshots through an L1 (process)/L2 (shared)/L3 (persistent) cache
// hierarchy, per spec.md §4.F.
package metricscollector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
)

// l1TTL is the process-local cache TTL (spec.md §4.F).
const l1TTL = 15 * time.Second

// l2TTL is the shared-store cache TTL, matching L1 since the shared cache
// only exists to spare other workers the same Kafka round-trip.
const l2TTL = 15 * time.Second

// retentionDefault is the default L3 retention window.
const retentionDefault = 7 * 24 * time.Hour

// KafkaAdmin is the subset of internal/kafkaadmin.Client snapshot assembly
// depends on.
type KafkaAdmin interface {
	DescribeCluster(ctx context.Context) (kafkaadmin.ClusterDescription, error)
	ListTopics(ctx context.Context) ([]string, error)
	DescribeTopics(ctx context.Context, names []string) (map[string]kafkaadmin.TopicDescription, error)
	DescribeLogDirs(ctx context.Context, topics []string) (map[string]map[int32]kafkaadmin.PartitionLogDir, error)
}

// AdminResolver resolves a cluster id to a live Kafka admin client,
// matching internal/conn.Manager.GetKafkaAdmin's shape once type-asserted
// by the caller at wiring time.
type AdminResolver func(ctx context.Context, clusterID string) (KafkaAdmin, error)

// SnapshotStore is the subset of internal/store.MetadataStore the collector
// depends on for L3.
type SnapshotStore interface {
	SaveMetricsSnapshot(ctx context.Context, snap domain.MetricsSnapshot) error
	GetLatestMetricsSnapshot(ctx context.Context, clusterID string) (*domain.MetricsSnapshot, error)
	DeleteMetricsSnapshotsOlderThan(ctx context.Context, before time.Time) (int, error)
	ListActiveClusterIDs(ctx context.Context) ([]string, error)
}

// Collector produces and serves MetricsSnapshot values through the L1/L2/L3
// hierarchy.
type Collector struct {
	resolveAdmin AdminResolver
	store        SnapshotStore
	redis        *redis.Client
	l1           *ttlcache.Cache[string, domain.MetricsSnapshot]
	fanout       pond.Pool
	retention    time.Duration
}

// New constructs a Collector. redisClient may be nil to disable L2 (the
// collector then falls through to L3/Kafka on every L1 miss). fanoutWorkers
// bounds per-tick concurrency across clusters; 0 defaults to 8.
func New(resolveAdmin AdminResolver, st SnapshotStore, redisClient *redis.Client, fanoutWorkers int) *Collector {
	if fanoutWorkers <= 0 {
		fanoutWorkers = 8
	}
	return &Collector{
		resolveAdmin: resolveAdmin,
		store:        st,
		redis:        redisClient,
		l1:           ttlcache.New[string, domain.MetricsSnapshot](ttlcache.WithTTL[string, domain.MetricsSnapshot](l1TTL)),
		fanout:       pond.NewPool(fanoutWorkers),
		retention:    retentionDefault,
	}
}

func l2Key(clusterID string) string {
	return fmt.Sprintf("metrics:cluster:%s:snapshot", clusterID)
}

// Get serves a snapshot through L1 → L2 → Kafka, filling both caches on a
// miss (spec.md §4.F read path).
func (c *Collector) Get(ctx context.Context, clusterID string) (domain.MetricsSnapshot, error) {
	if item := c.l1.Get(clusterID); item != nil {
		return item.Value(), nil
	}

	if snap, ok := c.getL2(ctx, clusterID); ok {
		c.l1.Set(clusterID, snap, l1TTL)
		return snap, nil
	}

	return c.Refresh(ctx, clusterID)
}

// Refresh bypasses both caches, rebuilds the snapshot from Kafka, and
// rewrites L1 and L2 (spec.md §4.F read path, force-refresh).
func (c *Collector) Refresh(ctx context.Context, clusterID string) (domain.MetricsSnapshot, error) {
	admin, err := c.resolveAdmin(ctx, clusterID)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	snap, err := assembleSnapshot(ctx, clusterID, admin)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	c.l1.Set(clusterID, snap, l1TTL)
	c.setL2(ctx, clusterID, snap)
	return snap, nil
}

// Collect builds a fresh snapshot for one cluster and persists it to L3,
// also rewriting L1/L2 so readers immediately see the new capture. It is
// idempotent and safe to retry or cancel (spec.md §4.F write path).
func (c *Collector) Collect(ctx context.Context, clusterID string) error {
	snap, err := c.Refresh(ctx, clusterID)
	if err != nil {
		return err
	}
	return c.store.SaveMetricsSnapshot(ctx, snap)
}

// CollectAll runs Collect for every active cluster, fanning work out across
// a bounded worker pool so a tick over N clusters is not N sequential Kafka
// round-trips (SPEC_FULL.md §4.F expansion). Per-cluster failures are
// collected and returned together rather than aborting the tick.
func (c *Collector) CollectAll(ctx context.Context) map[string]error {
	clusterIDs, err := c.store.ListActiveClusterIDs(ctx)
	if err != nil {
		return map[string]error{"*": err}
	}

	group := c.fanout.NewGroupContext(ctx)
	errs := make([]error, len(clusterIDs))
	for i, id := range clusterIDs {
		i, id := i, id
		group.SubmitErr(func() error {
			err := c.Collect(ctx, id)
			errs[i] = err
			return err
		})
	}
	_ = group.Wait()
	results := make(map[string]error, len(clusterIDs))
	for i, id := range clusterIDs {
		results[id] = errs[i]
	}
	return results
}

// Cleanup deletes L3 snapshots older than the given retention window,
// returning the number of rows removed. Called daily per spec.md §4.F.
func (c *Collector) Cleanup(ctx context.Context, days int) (int, error) {
	retention := c.retention
	if days > 0 {
		retention = time.Duration(days) * 24 * time.Hour
	}
	return c.store.DeleteMetricsSnapshotsOlderThan(ctx, time.Now().UTC().Add(-retention))
}

func (c *Collector) getL2(ctx context.Context, clusterID string) (domain.MetricsSnapshot, bool) {
	if c.redis == nil {
		return domain.MetricsSnapshot{}, false
	}
	raw, err := c.redis.Get(ctx, l2Key(clusterID)).Bytes()
	if err != nil {
		return domain.MetricsSnapshot{}, false
	}
	var snap domain.MetricsSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.MetricsSnapshot{}, false
	}
	return snap, true
}

func (c *Collector) setL2(ctx context.Context, clusterID string, snap domain.MetricsSnapshot) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, l2Key(clusterID), raw, l2TTL).Err()
}

// assembleSnapshot performs the four-phase Kafka round-trip spec.md §4.F.1
// describes: describe_cluster → list_topics → describe_topics →
// describe_log_dirs → join.
func assembleSnapshot(ctx context.Context, clusterID string, admin KafkaAdmin) (domain.MetricsSnapshot, error) {
	cluster, err := admin.DescribeCluster(ctx)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	names, err := admin.ListTopics(ctx)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	descriptions, err := admin.DescribeTopics(ctx, names)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	logDirs, err := admin.DescribeLogDirs(ctx, names)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	topics := make(map[string]domain.TopicMeta, len(descriptions))
	leaderDist := make(map[int32]int)
	totalPartitions := 0

	for name, desc := range descriptions {
		partitionDirs := logDirs[name]
		details := make([]domain.PartitionMeta, 0, len(desc.Partitions))
		for _, p := range desc.Partitions {
			dir := partitionDirs[p.ID]
			details = append(details, domain.PartitionMeta{
				Index: p.ID, Size: dir.Size, OffsetLag: dir.OffsetLag,
				Leader: p.Leader, Replicas: p.Replicas, ISR: p.ISR,
			})
			leaderDist[p.Leader]++
			totalPartitions++
		}
		topics[name] = domain.TopicMeta{PartitionDetails: details}
	}

	return domain.MetricsSnapshot{
		ClusterID: clusterID, CapturedAt: time.Now().UTC(), Topics: topics,
		BrokerCount: len(cluster.Brokers), TotalPartitions: totalPartitions,
		LeaderDistribution: leaderDist,
	}, nil
}
