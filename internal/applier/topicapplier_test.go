package applier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/applier"
	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
	"github.com/kafkagov/controlplane/internal/store"
)

type fakeTopicAdmin struct {
	describeResp map[string]kafkaadmin.TopicDescription
	createResp   map[string]error
	deleteResp   map[string]error
	alterResp    map[string]error
	partResp     map[string]error
	createCalls  []map[string]domain.TopicConfig
}

func (f *fakeTopicAdmin) DescribeTopics(_ context.Context, _ []string) (map[string]kafkaadmin.TopicDescription, error) {
	return f.describeResp, nil
}

func (f *fakeTopicAdmin) CreateTopics(_ context.Context, specs map[string]domain.TopicConfig) (map[string]error, error) {
	f.createCalls = append(f.createCalls, specs)
	if f.createResp != nil {
		return f.createResp, nil
	}
	out := make(map[string]error, len(specs))
	for name := range specs {
		out[name] = nil
	}
	return out, nil
}

func (f *fakeTopicAdmin) DeleteTopics(_ context.Context, names []string) (map[string]error, error) {
	if f.deleteResp != nil {
		return f.deleteResp, nil
	}
	out := make(map[string]error, len(names))
	for _, n := range names {
		out[n] = nil
	}
	return out, nil
}

func (f *fakeTopicAdmin) AlterTopicConfigs(_ context.Context, configs map[string]map[string]string) (map[string]error, error) {
	if f.alterResp != nil {
		return f.alterResp, nil
	}
	out := make(map[string]error, len(configs))
	for name := range configs {
		out[name] = nil
	}
	return out, nil
}

func (f *fakeTopicAdmin) CreatePartitions(_ context.Context, counts map[string]int) (map[string]error, error) {
	if f.partResp != nil {
		return f.partResp, nil
	}
	out := make(map[string]error, len(counts))
	for name := range counts {
		out[name] = nil
	}
	return out, nil
}

type fakeAuditStore struct {
	recs []domain.AuditRecord
}

func (f *fakeAuditStore) WriteAudit(_ context.Context, rec domain.AuditRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeAuditStore) ListAudit(_ context.Context, changeID string) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	for _, r := range f.recs {
		if r.ChangeID == changeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func mustTopicSpec(t *testing.T, name string) domain.TopicSpec {
	t.Helper()
	cfg, err := domain.NewTopicConfig(domain.TopicConfig{Partitions: 3, ReplicationFactor: 3})
	require.NoError(t, err)
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: name, Action: domain.ActionCreate, Config: &cfg,
		Metadata: &domain.TopicMetadata{Owners: []string{"team-a"}},
	})
	require.NoError(t, err)
	return spec
}

func TestTopicApplier_CreateSucceeds(t *testing.T) {
	t.Parallel()

	admin := &fakeTopicAdmin{}
	st := store.NewMemory()
	auditSvc := audit.New(&fakeAuditStore{}, nil)
	a := applier.NewTopicApplier(admin, st, auditSvc, nil)

	spec := mustTopicSpec(t, "dev.orders")
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	target := *spec.Config
	plan := domain.Plan[domain.TopicConfig]{
		ChangeID: "chg-1", Env: domain.EnvDev,
		Items: []domain.PlanItem[domain.TopicConfig]{
			{Name: "dev.orders", Action: domain.PlanCreate, TargetConfig: &target},
		},
	}

	result, err := a.Apply(context.Background(), batch, plan, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"dev.orders"}, result.Applied)
	require.Empty(t, result.Failed)
	require.NotEmpty(t, result.AuditID)

	_, err = st.GetTopicMetadata(context.Background(), "dev.orders")
	require.NoError(t, err)
}

func TestTopicApplier_CreateRollsBackOnMetadataFailure(t *testing.T) {
	t.Parallel()

	admin := &fakeTopicAdmin{}
	st := &failingMetadataStore{}
	auditSvc := audit.New(&fakeAuditStore{}, nil)
	a := applier.NewTopicApplier(admin, st, auditSvc, nil)

	spec := mustTopicSpec(t, "dev.orders")
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	target := *spec.Config
	plan := domain.Plan[domain.TopicConfig]{
		ChangeID: "chg-1", Env: domain.EnvDev,
		Items: []domain.PlanItem[domain.TopicConfig]{
			{Name: "dev.orders", Action: domain.PlanCreate, TargetConfig: &target},
		},
	}

	result, err := a.Apply(context.Background(), batch, plan, "alice")
	require.NoError(t, err)
	require.Empty(t, result.Applied)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "메타데이터 저장 실패: boom", result.Failed[0].Error)
}

type failingMetadataStore struct{}

func (f *failingMetadataStore) SaveTopicMetadata(context.Context, store.TopicMetadataRow) error {
	return errors.New("boom")
}

func (f *failingMetadataStore) DeleteTopicMetadata(context.Context, string) error { return nil }

func TestTopicApplier_AlterPartitionAndConfigIndependence(t *testing.T) {
	t.Parallel()

	admin := &fakeTopicAdmin{
		describeResp: map[string]kafkaadmin.TopicDescription{
			"dev.orders": {PartitionCount: 3},
		},
		partResp: map[string]error{"dev.orders": errors.New("partition increase rejected")},
	}
	st := store.NewMemory()
	auditSvc := audit.New(&fakeAuditStore{}, nil)
	a := applier.NewTopicApplier(admin, st, auditSvc, nil)

	current, err := domain.NewTopicConfig(domain.TopicConfig{Partitions: 3, ReplicationFactor: 3})
	require.NoError(t, err)
	target, err := domain.NewTopicConfig(domain.TopicConfig{Partitions: 6, ReplicationFactor: 3, CompressionType: "lz4"})
	require.NoError(t, err)

	spec := mustTopicSpec(t, "dev.orders")
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	plan := domain.Plan[domain.TopicConfig]{
		ChangeID: "chg-1", Env: domain.EnvDev,
		Items: []domain.PlanItem[domain.TopicConfig]{
			{Name: "dev.orders", Action: domain.PlanAlter, CurrentConfig: &current, TargetConfig: &target},
		},
	}

	result, err := a.Apply(context.Background(), batch, plan, "alice")
	require.NoError(t, err)
	require.Contains(t, result.Applied, "dev.orders")
	require.Len(t, result.Failed, 1)
	require.Equal(t, domain.PlanAlter, result.Failed[0].Action)
}

func TestTopicApplier_StaleAbortsBatch(t *testing.T) {
	t.Parallel()

	admin := &fakeTopicAdmin{
		describeResp: map[string]kafkaadmin.TopicDescription{
			"dev.orders": {PartitionCount: 9},
		},
	}
	st := store.NewMemory()
	auditSvc := audit.New(&fakeAuditStore{}, nil)
	a := applier.NewTopicApplier(admin, st, auditSvc, nil)

	current, err := domain.NewTopicConfig(domain.TopicConfig{Partitions: 3, ReplicationFactor: 3})
	require.NoError(t, err)
	target, err := domain.NewTopicConfig(domain.TopicConfig{Partitions: 6, ReplicationFactor: 3})
	require.NoError(t, err)

	spec := mustTopicSpec(t, "dev.orders")
	batch, err := domain.NewBatch("chg-1", domain.EnvDev, []domain.TopicSpec{spec})
	require.NoError(t, err)

	plan := domain.Plan[domain.TopicConfig]{
		ChangeID: "chg-1", Env: domain.EnvDev,
		Items: []domain.PlanItem[domain.TopicConfig]{
			{Name: "dev.orders", Action: domain.PlanAlter, CurrentConfig: &current, TargetConfig: &target},
		},
	}

	_, err = a.Apply(context.Background(), batch, plan, "alice")
	require.Error(t, err)
}
