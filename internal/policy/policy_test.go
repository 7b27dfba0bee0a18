package policy_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/policy"
	"github.com/stretchr/testify/require"
)

// fakeStore is a trivial in-memory policy.Store for unit tests.
type fakeStore struct {
	active map[string]*domain.Policy // key: type:tier
}

func newFakeStore() *fakeStore { return &fakeStore{active: map[string]*domain.Policy{}} }

func (f *fakeStore) set(policyType domain.PolicyType, tier string, content string) {
	f.active[string(policyType)+":"+tier] = &domain.Policy{
		PolicyID: string(policyType) + "-" + tier, Type: policyType, Status: domain.PolicyActive,
		TargetEnvironment: tier, Content: json.RawMessage(content),
	}
}

func (f *fakeStore) ActivePolicy(_ context.Context, policyType domain.PolicyType, tier string) (*domain.Policy, error) {
	return f.active[string(policyType)+":"+tier], nil
}

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }

func TestEngine_ValidateTopicBatch_ProdCompliant(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	engine := policy.NewEngine(store, false)

	cfg := domain.TopicConfig{
		Partitions: 12, ReplicationFactor: 3, MinInsyncReplicas: intp(2),
		RetentionMs: int64p(604800000), CompressionType: "lz4",
	}
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "prod.orders.created", Action: domain.ActionCreate, Config: &cfg,
		Metadata: &domain.TopicMetadata{Owners: []string{"data"}},
	})
	require.NoError(t, err)

	violations, err := engine.ValidateTopicBatch(context.Background(), []domain.TopicSpec{spec})
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestEngine_ValidateTopicBatch_ProdGuardrailBlock(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	engine := policy.NewEngine(store, false)

	cfg := domain.TopicConfig{
		Partitions: 12, ReplicationFactor: 1, MinInsyncReplicas: intp(2),
		RetentionMs: int64p(604800000),
	}
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "prod.orders.created", Action: domain.ActionCreate, Config: &cfg,
		Metadata: &domain.TopicMetadata{Owners: []string{"data"}},
	})
	require.NoError(t, err)

	violations, err := engine.ValidateTopicBatch(context.Background(), []domain.TopicSpec{spec})
	require.NoError(t, err)

	var found bool
	for _, v := range violations {
		if v.RuleID == "prod.min_replication_factor" {
			found = true
			require.Equal(t, domain.SeverityError, v.Severity)
		}
	}
	require.True(t, found, "expected prod.min_replication_factor violation, got %+v", violations)
}

func TestEngine_ValidateTopicBatch_ReservedWordAlwaysError(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	engine := policy.NewEngine(store, false)

	cfg := domain.TopicConfig{Partitions: 1, ReplicationFactor: 1}
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "__consumer_offsets", Action: domain.ActionCreate, Config: &cfg,
		Metadata: &domain.TopicMetadata{Owners: []string{"data"}},
	})
	require.NoError(t, err)

	violations, err := engine.ValidateTopicBatch(context.Background(), []domain.TopicSpec{spec})
	require.NoError(t, err)

	var found bool
	for _, v := range violations {
		if v.RuleID == "naming.reserved_word" {
			found = true
			require.Equal(t, domain.SeverityError, v.Severity)
		}
	}
	require.True(t, found)
}

func TestEngine_ValidateTopicBatch_MissingOwner(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	engine := policy.NewEngine(store, false)

	cfg := domain.TopicConfig{Partitions: 1, ReplicationFactor: 1}
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "dev.orders.created", Action: domain.ActionCreate, Config: &cfg,
		Metadata: &domain.TopicMetadata{},
	})
	require.NoError(t, err)

	violations, err := engine.ValidateTopicBatch(context.Background(), []domain.TopicSpec{spec})
	require.NoError(t, err)

	var found bool
	for _, v := range violations {
		if v.RuleID == "metadata.owner_required" {
			found = true
		}
	}
	require.True(t, found)
}

func TestEngine_ValidateSchemaBatch_CompatibilityWhitelist(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	engine := policy.NewEngine(store, false)

	spec, err := domain.NewSchemaSpec(domain.SchemaSpec{
		Subject: "prod.user-value", SchemaType: domain.SchemaTypeAvro,
		CompatibilityMode: domain.CompatBackward, // not allowed in PROD
		SchemaLiteral:     `{"type":"record"}`,
		Metadata:          &domain.SchemaMetadata{Owners: []string{"data"}},
	})
	require.NoError(t, err)

	violations, err := engine.ValidateSchemaBatch(context.Background(), []domain.SchemaSpec{spec})
	require.NoError(t, err)

	var found bool
	for _, v := range violations {
		if v.RuleID == "schema.compatibility.mode" {
			found = true
		}
	}
	require.True(t, found)
}

func TestEngine_MalformedPolicy_FailOpenVsFailClosed(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.set(domain.PolicyTypeGuardrail, "prod", "not-json")

	cfg := domain.TopicConfig{Partitions: 1, ReplicationFactor: 3, MinInsyncReplicas: intp(2), RetentionMs: int64p(604800000), CompressionType: "lz4"}
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "prod.orders.created", Action: domain.ActionCreate, Config: &cfg,
		Metadata: &domain.TopicMetadata{Owners: []string{"data"}},
	})
	require.NoError(t, err)

	t.Run("fail open surfaces synthetic critical violation", func(t *testing.T) {
		t.Parallel()
		engine := policy.NewEngine(store, false)
		violations, err := engine.ValidateTopicBatch(context.Background(), []domain.TopicSpec{spec})
		require.NoError(t, err)
		var found bool
		for _, v := range violations {
			if v.RuleID == "policy.config_error" {
				found = true
				require.Equal(t, domain.SeverityCritical, v.Severity)
			}
		}
		require.True(t, found)
	})

	t.Run("fail closed returns error", func(t *testing.T) {
		t.Parallel()
		engine := policy.NewEngine(store, true)
		_, err := engine.ValidateTopicBatch(context.Background(), []domain.TopicSpec{spec})
		require.Error(t, err)
	})
}

func TestResolveActive_FallsBackToTotal(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.set(domain.PolicyTypeNaming, "total", `{"pattern":"^.*$"}`)

	p, err := policy.ResolveActive(context.Background(), store, domain.PolicyTypeNaming, domain.EnvDev)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "total", p.TargetEnvironment)
}
