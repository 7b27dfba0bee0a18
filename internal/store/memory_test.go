package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/store"
)

func TestMemory_PolicyLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()

	p1, err := domain.NewPolicy(domain.Policy{
		PolicyID:          "naming-prod",
		Type:              domain.PolicyTypeNaming,
		TargetEnvironment: "prod",
		Name:              "prod naming",
		Content:           []byte(`{}`),
		CreatedBy:         "alice",
	})
	require.NoError(t, err)
	require.NoError(t, s.CreatePolicy(ctx, p1))

	active, err := s.ActivePolicy(ctx, domain.PolicyTypeNaming, "prod")
	require.NoError(t, err)
	require.Nil(t, active, "a DRAFT policy is not active")

	require.NoError(t, s.ActivatePolicy(ctx, "naming-prod", 1))

	active, err = s.ActivePolicy(ctx, domain.PolicyTypeNaming, "prod")
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, domain.PolicyActive, active.Status)

	v2 := p1
	v2.Version = 2
	v2.Content = []byte(`{"v":2}`)
	require.NoError(t, s.CreatePolicy(ctx, v2))
	require.NoError(t, s.ActivatePolicy(ctx, "naming-prod", 2))

	active, err = s.ActivePolicy(ctx, domain.PolicyTypeNaming, "prod")
	require.NoError(t, err)
	require.Equal(t, 2, active.Version, "activating v2 must archive v1")

	v1, err := s.GetPolicy(ctx, "naming-prod", 1)
	require.NoError(t, err)
	require.Equal(t, domain.PolicyArchived, v1.Status)

	err = s.DeletePolicy(ctx, "naming-prod", 2)
	require.Error(t, err, "cannot delete an ACTIVE policy")

	require.NoError(t, s.ArchivePolicy(ctx, "naming-prod", 2))
	require.NoError(t, s.DeletePolicy(ctx, "naming-prod", 2))
}

func TestMemory_ActivatePolicy_ArchivesSiblingAcrossPolicyIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()

	a, err := domain.NewPolicy(domain.Policy{
		PolicyID: "naming-a", Type: domain.PolicyTypeNaming, TargetEnvironment: "prod",
		Name: "a", Content: []byte(`{}`), CreatedBy: "alice",
	})
	require.NoError(t, err)
	b, err := domain.NewPolicy(domain.Policy{
		PolicyID: "naming-b", Type: domain.PolicyTypeNaming, TargetEnvironment: "prod",
		Name: "b", Content: []byte(`{}`), CreatedBy: "alice",
	})
	require.NoError(t, err)

	require.NoError(t, s.CreatePolicy(ctx, a))
	require.NoError(t, s.CreatePolicy(ctx, b))
	require.NoError(t, s.ActivatePolicy(ctx, "naming-a", 1))
	require.NoError(t, s.ActivatePolicy(ctx, "naming-b", 1))

	active, err := s.ActivePolicy(ctx, domain.PolicyTypeNaming, "prod")
	require.NoError(t, err)
	require.Equal(t, "naming-b", active.PolicyID, "only one ACTIVE policy per (type, target_environment)")

	stale, err := s.GetPolicy(ctx, "naming-a", 1)
	require.NoError(t, err)
	require.Equal(t, domain.PolicyArchived, stale.Status)
}

func TestMemory_TopicMetadata_PreservesCreatedFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()

	row := store.TopicMetadataRow{TopicName: "dev.orders", Owner: "team-orders", CreatedBy: "alice"}
	require.NoError(t, s.SaveTopicMetadata(ctx, row))

	first, err := s.GetTopicMetadata(ctx, "dev.orders")
	require.NoError(t, err)

	row.Owner = "team-orders-2"
	row.UpdatedBy = "bob"
	require.NoError(t, s.SaveTopicMetadata(ctx, row))

	got, err := s.GetTopicMetadata(ctx, "dev.orders")
	require.NoError(t, err)
	require.Equal(t, "alice", got.CreatedBy)
	require.Equal(t, "bob", got.UpdatedBy)
	require.Equal(t, "team-orders-2", got.Owner)
	require.True(t, got.CreatedAt.Equal(first.CreatedAt))
}

func TestMemory_MetricsSnapshot_RetentionCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()

	old := domain.MetricsSnapshot{ClusterID: "c1", CapturedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	recent := domain.MetricsSnapshot{ClusterID: "c1", CapturedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.SaveMetricsSnapshot(ctx, old))
	require.NoError(t, s.SaveMetricsSnapshot(ctx, recent))

	latest, err := s.GetLatestMetricsSnapshot(ctx, "c1")
	require.NoError(t, err)
	require.True(t, latest.CapturedAt.Equal(recent.CapturedAt))

	n, err := s.DeleteMetricsSnapshotsOlderThan(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	latest, err = s.GetLatestMetricsSnapshot(ctx, "c1")
	require.NoError(t, err)
	require.True(t, latest.CapturedAt.Equal(recent.CapturedAt))
}

func TestMemory_ListActiveClusterIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()

	require.NoError(t, s.UpsertClusterEndpoint(ctx, domain.ClusterEndpoint{ID: "c1", IsActive: true}))
	require.NoError(t, s.UpsertClusterEndpoint(ctx, domain.ClusterEndpoint{ID: "c2", IsActive: false}))

	ids, err := s.ListActiveClusterIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c1"}, ids)
}
