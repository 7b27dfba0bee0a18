package domain

import "time"

// PartitionMeta is one partition's state within a MetricsSnapshot.
type PartitionMeta struct {
	Index     int32
	Size      int64
	OffsetLag int64
	Leader    int32
	Replicas  []int32
	ISR       []int32
}

// TopicMeta is one topic's partition roster within a MetricsSnapshot.
type TopicMeta struct {
	PartitionDetails []PartitionMeta
}

// MetricsSnapshot is a point-in-time capture of one cluster's topic and
// partition state, both cached (L1/L2) and persisted (L3).
type MetricsSnapshot struct {
	ClusterID          string
	CapturedAt         time.Time
	Topics             map[string]TopicMeta
	BrokerCount        int
	TotalPartitions    int
	LeaderDistribution map[int32]int
}

// PartitionToBrokerRatio is a lazily-derived aggregation (spec.md §4.F).
func (m MetricsSnapshot) PartitionToBrokerRatio() float64 {
	if m.BrokerCount == 0 {
		return 0
	}
	return float64(m.TotalPartitions) / float64(m.BrokerCount)
}

// TopicPartitionSizes returns min, max, avg partition size in bytes for one
// topic, or all zero if the topic is absent or has no partitions.
func (m MetricsSnapshot) TopicPartitionSizes(topic string) (min, max int64, avg float64) {
	meta, ok := m.Topics[topic]
	if !ok || len(meta.PartitionDetails) == 0 {
		return 0, 0, 0
	}
	min = meta.PartitionDetails[0].Size
	max = meta.PartitionDetails[0].Size
	var total int64
	for _, p := range meta.PartitionDetails {
		if p.Size < min {
			min = p.Size
		}
		if p.Size > max {
			max = p.Size
		}
		total += p.Size
	}
	avg = float64(total) / float64(len(meta.PartitionDetails))
	return min, max, avg
}
