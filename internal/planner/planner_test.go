package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
	"github.com/kafkagov/controlplane/internal/planner"
	"github.com/kafkagov/controlplane/internal/schemaregistry"
)

func mustTopicConfig(t *testing.T, partitions, rf int) *domain.TopicConfig {
	t.Helper()
	cfg, err := domain.NewTopicConfig(domain.TopicConfig{Partitions: partitions, ReplicationFactor: rf})
	require.NoError(t, err)
	return &cfg
}

func TestPlanTopicBatch_CreateAbsent(t *testing.T) {
	t.Parallel()

	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "dev.orders", Action: domain.ActionCreate,
		Config:   mustTopicConfig(t, 6, 1),
		Metadata: &domain.TopicMetadata{Owners: []string{"team-orders"}},
	})
	require.NoError(t, err)
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	plan, err := planner.PlanTopicBatch(batch, map[string]kafkaadmin.TopicDescription{}, domain.TopicConfig{}, nil)
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	require.Equal(t, domain.PlanCreate, plan.Items[0].Action)
	require.Equal(t, "new→created", plan.Items[0].Diff["status"])
}

func TestPlanTopicBatch_DeleteAbsentIsNone(t *testing.T) {
	t.Parallel()

	spec, err := domain.NewTopicSpec(domain.TopicSpec{Name: "dev.orders", Action: domain.ActionDelete})
	require.NoError(t, err)
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	plan, err := planner.PlanTopicBatch(batch, map[string]kafkaadmin.TopicDescription{}, domain.TopicConfig{}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.PlanNone, plan.Items[0].Action)
}

func TestPlanTopicBatch_AlterComputesDiffAndFlagsLegality(t *testing.T) {
	t.Parallel()

	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "dev.orders", Action: domain.ActionUpsert,
		Config:   mustTopicConfig(t, 3, 2), // fewer partitions and different RF than current
		Metadata: &domain.TopicMetadata{Owners: []string{"team-orders"}},
	})
	require.NoError(t, err)
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	current := map[string]kafkaadmin.TopicDescription{
		"dev.orders": {PartitionCount: 6, ReplicationFactor: 1, Config: map[string]string{"cleanup.policy": "delete"}},
	}

	plan, err := planner.PlanTopicBatch(batch, current, domain.TopicConfig{}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.PlanAlter, plan.Items[0].Action)
	require.NotEmpty(t, plan.Items[0].UnifiedDiff)

	var sawPartitionDecrease, sawRFChange bool
	for _, v := range plan.Violations {
		switch v.RuleID {
		case "change.partition_decrease":
			sawPartitionDecrease = true
		case "change.replication_factor_change":
			sawRFChange = true
		}
	}
	require.True(t, sawPartitionDecrease)
	require.True(t, sawRFChange)
	require.False(t, plan.CanApply())
}

func TestPlanTopicBatch_NoDiffIsNone(t *testing.T) {
	t.Parallel()

	cfg := mustTopicConfig(t, 6, 1)
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "dev.orders", Action: domain.ActionUpsert, Config: cfg,
		Metadata: &domain.TopicMetadata{Owners: []string{"team-orders"}},
	})
	require.NoError(t, err)
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	current := map[string]kafkaadmin.TopicDescription{
		"dev.orders": {PartitionCount: 6, ReplicationFactor: 1, Config: cfg.ToKafkaConfig()},
	}

	plan, err := planner.PlanTopicBatch(batch, current, domain.TopicConfig{}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.PlanNone, plan.Items[0].Action)
	require.True(t, plan.CanApply())
}

type fakeChecker struct {
	compatible bool
}

func (f fakeChecker) CheckCompatibility(_ context.Context, spec domain.SchemaSpec, _ string) domain.CompatibilityReport {
	return domain.CompatibilityReport{Subject: spec.Subject, Mode: spec.CompatibilityMode, IsCompatible: f.compatible}
}

func TestPlanSchemaBatch_CreateAndIncompatibleBlocks(t *testing.T) {
	t.Parallel()

	spec, err := domain.NewSchemaSpec(domain.SchemaSpec{
		Subject: "dev.orders-value", Action: domain.ActionCreate,
		SchemaType: domain.SchemaTypeAvro, CompatibilityMode: domain.CompatBackward,
		SchemaLiteral: `{"type":"record","name":"Order","fields":[]}`,
	})
	require.NoError(t, err)

	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.SchemaSpec{spec})
	require.NoError(t, err)

	plan, err := planner.PlanSchemaBatch(context.Background(), batch,
		map[string]schemaregistry.SubjectDescription{}, fakeChecker{compatible: false}, nil)
	require.NoError(t, err)
	require.Equal(t, domain.PlanCreate, plan.Items[0].Action)
	require.False(t, plan.CanApply(), "an incompatible report must block apply")
}
