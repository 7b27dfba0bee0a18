package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/domain"
)

type fakeStore struct {
	recs []domain.AuditRecord
}

func (f *fakeStore) WriteAudit(_ context.Context, rec domain.AuditRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeStore) ListAudit(_ context.Context, changeID string) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	for _, r := range f.recs {
		if r.ChangeID == changeID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestService_CausalOrdering(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc := audit.New(store, fixedClock{base})

	require.NoError(t, svc.Started(context.Background(), "chg-1", "APPLY", "dev.orders", "alice", "team-a"))
	require.NoError(t, svc.Item(context.Background(), "chg-1", "CREATE", "dev.orders", "alice", "created", nil))
	id, err := svc.Terminal(context.Background(), "chg-1", "APPLY", "alice", domain.AuditCompleted, "done", map[string]any{"applied_count": 1})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	history, err := svc.History(context.Background(), "chg-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, domain.AuditStarted, history[0].Status)
	require.Equal(t, "CREATE", history[1].Action)
	require.Equal(t, domain.AuditCompleted, history[2].Status)
}
