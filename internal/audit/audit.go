// Package audit is a thin service over internal/store.MetadataStore's audit
// methods, enforcing the causal-ordering contract spec.md §4.E.6 and §5
// require: STARTED before per-item events before a terminal status, and an
// audit-write failure must bubble up rather than be swallowed.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
)

// Store is the subset of internal/store.MetadataStore the audit service
// depends on.
type Store interface {
	WriteAudit(ctx context.Context, rec domain.AuditRecord) error
	ListAudit(ctx context.Context, changeID string) ([]domain.AuditRecord, error)
}

// Clock abstracts time.Now so tests get deterministic timestamps, matching
// the teacher's jonboulle/clockwork usage at the command layer.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Service writes and reads the audit trail for one or more changes.
type Service struct {
	store Store
	clock Clock
}

// New constructs a Service. A nil clock defaults to the wall clock.
func New(store Store, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{store: store, clock: clock}
}

// Started writes the STARTED record that must precede every other record
// for changeID (spec.md §4.E.6).
func (s *Service) Started(ctx context.Context, changeID, action, target, actor, team string) error {
	return s.write(ctx, domain.AuditRecord{
		ChangeID: changeID, Action: action, Target: target, Actor: actor,
		Status: domain.AuditStarted, Team: team,
	})
}

// Item writes a per-item event (e.g. CREATE, DELETE, ALTER_CONFIG,
// ALTER_PARTITIONS) that occurred during an apply, without itself
// representing terminal status.
func (s *Service) Item(ctx context.Context, changeID, action, target, actor, message string, snapshot map[string]any) error {
	return s.write(ctx, domain.AuditRecord{
		ChangeID: changeID, Action: action, Target: target, Actor: actor,
		Status: domain.AuditStarted, Message: message, Snapshot: snapshot,
	})
}

// Terminal writes the final STATUS record for changeID: COMPLETED,
// PARTIALLY_COMPLETED, or FAILED.
func (s *Service) Terminal(ctx context.Context, changeID, action, actor string, status domain.AuditStatus, message string, snapshot map[string]any) (string, error) {
	rec := domain.AuditRecord{
		ID: uuid.NewString(), ChangeID: changeID, Action: action, Target: changeID, Actor: actor,
		Status: status, Message: message, Snapshot: snapshot,
	}
	if err := s.write(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Service) write(ctx context.Context, rec domain.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Timestamp = s.clock.Now()
	if err := s.store.WriteAudit(ctx, rec); err != nil {
		return apperrors.MetadataStore("write_audit", err)
	}
	return nil
}

// History returns every audit record for changeID in causal order.
func (s *Service) History(ctx context.Context, changeID string) ([]domain.AuditRecord, error) {
	recs, err := s.store.ListAudit(ctx, changeID)
	if err != nil {
		return nil, apperrors.MetadataStore("list_audit", err)
	}
	return recs, nil
}
