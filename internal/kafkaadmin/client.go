// Package kafkaadmin wraps twmb/franz-go's kadm.Client with the uniform,
// idempotent, per-item error-map contract spec.md §4.D requires.
package kafkaadmin

import (
	"context"
	"fmt"
	"time"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/retrywrap"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// operationTimeout and requestTimeout match spec.md §5's adapter-defined
// bounds for Kafka admin calls.
const (
	operationTimeout = 30 * time.Second
	requestTimeout   = 60 * time.Second
)

// Client is the Kafka topic administration adapter.
type Client struct {
	admin *kadm.Client
	retry retrywrap.Config
}

// New constructs a Client from a ClusterEndpoint, matching the teacher's
// telemetry/flow-ingest/internal/kafka.NewClient shape.
func New(ctx context.Context, ep domain.ClusterEndpoint) (*Client, error) {
	if len(ep.Brokers) == 0 {
		return nil, fmt.Errorf("kafkaadmin: cluster %s has no brokers configured", ep.ID)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(ep.Brokers...),
		kgo.RequestTimeoutOverhead(requestTimeout),
	}
	if ep.AuthMethod == "sasl_plain" {
		// SASL wiring point: franz-go's kgo.SASL(plain.Auth{...}.AsMechanism())
		// would be added here once credential plumbing from ep.Username/
		// ep.Password is finalized. Left as a TODO rather than guessed at,
		// since the endpoint row's credential shape is not fully specified.
	}

	kc, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafkaadmin: dial cluster %s: %w", ep.ID, err)
	}

	return &Client{admin: kadm.NewClient(kc), retry: retrywrap.DefaultConfig()}, nil
}

// Close releases the underlying Kafka client connection.
func (c *Client) Close() error {
	c.admin.Close()
	return nil
}

// ItemError is one entry of a per-item error map.
type ItemError struct {
	Name string
	Err  error
}

// ListTopics returns every topic name visible on the cluster.
func (c *Client) ListTopics(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	topics, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.TopicDetails, error) {
		return c.admin.ListTopics(ctx)
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	return names, nil
}

// TopicDescription is the describe_topics per-name result shape.
type TopicDescription struct {
	PartitionCount    int
	ReplicationFactor int
	Config            map[string]string
	Partitions        []PartitionDescription
}

// PartitionDescription is one partition's roster within a topic description.
type PartitionDescription struct {
	ID       int32
	Leader   int32
	Replicas []int32
	ISR      []int32
}

// DescribeTopics returns details for the requested names; names that do not
// exist are omitted from the result map, per spec.md §4.D.
func (c *Client) DescribeTopics(ctx context.Context, names []string) (map[string]TopicDescription, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	details, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.TopicDetails, error) {
		return c.admin.ListTopics(ctx, names...)
	})
	if err != nil {
		return nil, err
	}

	configs, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.ResourceConfigs, error) {
		return c.admin.DescribeTopicConfigs(ctx, names...)
	})
	if err != nil {
		return nil, err
	}
	configByName := make(map[string]map[string]string, len(configs))
	for _, rc := range configs {
		m := make(map[string]string, len(rc.Configs))
		for _, entry := range rc.Configs {
			if entry.Value != nil {
				m[entry.Key] = *entry.Value
			}
		}
		configByName[rc.Name] = m
	}

	out := make(map[string]TopicDescription, len(details))
	for name, td := range details {
		if td.Err != nil {
			continue // does not exist or unreadable: omitted per contract
		}
		desc := TopicDescription{Config: configByName[name]}
		var replicationFactor int
		partitions := make([]PartitionDescription, 0, len(td.Partitions))
		for _, p := range td.Partitions.Sorted() {
			replicationFactor = len(p.Replicas)
			partitions = append(partitions, PartitionDescription{
				ID: p.Partition, Leader: p.Leader, Replicas: p.Replicas, ISR: p.ISR,
			})
		}
		desc.PartitionCount = len(partitions)
		desc.ReplicationFactor = replicationFactor
		desc.Partitions = partitions
		out[name] = desc
	}
	return out, nil
}

// CreateTopics submits creates for every spec, returning a per-name error
// map. Absent keys (none currently) would indicate a skipped item; every
// submitted name always receives an entry here.
func (c *Client) CreateTopics(ctx context.Context, specs map[string]domain.TopicConfig) (map[string]error, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	result := make(map[string]error, len(specs))
	for name, cfg := range specs {
		configs := make(map[string]*string)
		for k, v := range cfg.ToKafkaConfig() {
			vv := v
			configs[k] = &vv
		}

		resp, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.CreateTopicResponses, error) {
			return c.admin.CreateTopics(ctx, int32(cfg.Partitions), int16(cfg.ReplicationFactor), configs, name)
		})
		if err != nil {
			result[name] = err // whole-call transport failure
			continue
		}
		r, ok := resp[name]
		if !ok {
			result[name] = fmt.Errorf("kafkaadmin: no response for topic %s", name)
			continue
		}
		result[name] = r.Err
	}
	return result, nil
}

// DeleteTopics submits deletes for every name, returning a per-name error
// map.
func (c *Client) DeleteTopics(ctx context.Context, names []string) (map[string]error, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	resp, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.DeleteTopicResponses, error) {
		return c.admin.DeleteTopics(ctx, names...)
	})
	if err != nil {
		return nil, err // whole-call transport failure: caller aborts
	}

	out := make(map[string]error, len(names))
	for _, name := range names {
		if r, ok := resp[name]; ok {
			out[name] = r.Err
		} else {
			out[name] = fmt.Errorf("kafkaadmin: no response for topic %s", name)
		}
	}
	return out, nil
}

// AlterTopicConfigs applies config overrides per topic, returning a
// per-name error map.
func (c *Client) AlterTopicConfigs(ctx context.Context, configs map[string]map[string]string) (map[string]error, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	out := make(map[string]error, len(configs))
	for name, cfg := range configs {
		var alters []kadm.AlterConfig
		for k, v := range cfg {
			vv := v
			alters = append(alters, kadm.AlterConfig{Op: kadm.SetConfig, Name: k, Value: &vv})
		}

		resp, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.AlterConfigsResponses, error) {
			return c.admin.AlterTopicConfigs(ctx, alters, name)
		})
		if err != nil {
			out[name] = err
			continue
		}
		for _, res := range resp {
			if res.Name == name {
				out[name] = res.Err
				break
			}
		}
	}
	return out, nil
}

// BrokerInfo is one broker entry in a ClusterDescription.
type BrokerInfo struct {
	NodeID int32
	Host   string
	Port   int32
	Rack   string
}

// ClusterDescription is the describe_cluster result shape (spec.md §4.F.1).
type ClusterDescription struct {
	Brokers []BrokerInfo
}

// DescribeCluster returns the cluster's broker roster, the first phase of
// metrics snapshot assembly.
func (c *Client) DescribeCluster(ctx context.Context) (ClusterDescription, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	details, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.BrokerDetails, error) {
		return c.admin.ListBrokers(ctx)
	})
	if err != nil {
		return ClusterDescription{}, err
	}

	brokers := make([]BrokerInfo, 0, len(details))
	for _, d := range details {
		brokers = append(brokers, BrokerInfo{
			NodeID: d.Broker.NodeID, Host: d.Broker.Host, Port: d.Broker.Port, Rack: derefRack(d.Broker.Rack),
		})
	}
	return ClusterDescription{Brokers: brokers}, nil
}

func derefRack(rack *string) string {
	if rack == nil {
		return ""
	}
	return *rack
}

// PartitionLogDir is one partition's on-disk state, joined with the
// describe_topics partition roster by (topic, partition) during snapshot
// assembly (spec.md §4.F.1).
type PartitionLogDir struct {
	Size      int64
	OffsetLag int64
}

// DescribeLogDirs returns per-partition size and offset lag for the
// requested topics (nil/empty means every topic).
func (c *Client) DescribeLogDirs(ctx context.Context, topics []string) (map[string]map[int32]PartitionLogDir, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	dirs, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.DescribedLogDirs, error) {
		return c.admin.DescribeAllLogDirs(ctx, topics)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[int32]PartitionLogDir)
	for _, d := range dirs {
		if d.Err != nil {
			continue
		}
		byPartition, ok := out[d.Topic]
		if !ok {
			byPartition = make(map[int32]PartitionLogDir)
			out[d.Topic] = byPartition
		}
		existing := byPartition[d.Partition]
		existing.Size += d.Size
		existing.OffsetLag += d.OffsetLag
		byPartition[d.Partition] = existing
	}
	return out, nil
}

// CreatePartitions increases partition counts per topic, returning a
// per-name error map. Callers must only invoke this with new_count >
// current, per spec.md §4.D and DESIGN.md Open Question #2.
func (c *Client) CreatePartitions(ctx context.Context, newCounts map[string]int) (map[string]error, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	out := make(map[string]error, len(newCounts))
	for name, count := range newCounts {
		resp, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (kadm.CreatePartitionsResponses, error) {
			return c.admin.CreatePartitions(ctx, count, name)
		})
		if err != nil {
			out[name] = err
			continue
		}
		if r, ok := resp[name]; ok {
			out[name] = r.Err
		} else {
			out[name] = fmt.Errorf("kafkaadmin: no response for topic %s", name)
		}
	}
	return out, nil
}
