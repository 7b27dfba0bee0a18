package applier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/eventbus"
)

// SchemaAdmin is the subset of internal/schemaregistry.Client the schema
// applier depends on.
type SchemaAdmin interface {
	SetCompatibilityMode(ctx context.Context, subject string, mode domain.CompatibilityMode) error
	RegisterSchema(ctx context.Context, spec domain.SchemaSpec, schemaText string) (version int, schemaID int, err error)
	DeleteSubject(ctx context.Context, subject string) ([]int, error)
}

// SchemaArtifactStore is the subset of internal/store.MetadataStore the
// schema applier depends on.
type SchemaArtifactStore interface {
	SaveSchemaArtifact(ctx context.Context, a domain.SchemaArtifact) error
	DeleteSchemaArtifact(ctx context.Context, subject string) error
}

// SchemaApplier executes schema plans. Each subject is its own transactional
// unit; unlike topics there is no batch-wide abort because CanApply is
// pre-checked before Apply is ever invoked (spec.md §4.E.5).
type SchemaApplier struct {
	registry SchemaAdmin
	store    SchemaArtifactStore
	audit    *audit.Service
	bus      *eventbus.Bus
}

// NewSchemaApplier constructs a SchemaApplier.
func NewSchemaApplier(registry SchemaAdmin, st SchemaArtifactStore, auditSvc *audit.Service, bus *eventbus.Bus) *SchemaApplier {
	return &SchemaApplier{registry: registry, store: st, audit: auditSvc, bus: bus}
}

// Apply executes plan, registering, updating, or deleting each subject in
// turn. storageURLs optionally maps subject to the object-storage URL of its
// uploaded source, when the spec arrived via schema bundle upload.
func (a *SchemaApplier) Apply(ctx context.Context, batch domain.Batch[domain.SchemaSpec], plan domain.Plan[domain.SchemaSpec], actor string, storageURLs map[string]string) (domain.ApplyResult, error) {
	if err := a.audit.Started(ctx, batch.ChangeID, "APPLY", batch.ChangeID, actor, ""); err != nil {
		return domain.ApplyResult{}, err
	}

	specByName := make(map[string]domain.SchemaSpec, len(batch.Specs))
	for _, s := range batch.Specs {
		specByName[s.Subject] = s
	}

	result := domain.ApplyResult{ChangeID: batch.ChangeID, Env: batch.Env}
	attempted := 0

	for _, item := range plan.Items {
		switch item.Action {
		case domain.PlanNone:
			result.Skipped = append(result.Skipped, item.Name)
		case domain.PlanDelete:
			attempted++
			a.applyDelete(ctx, batch.ChangeID, actor, item.Name, &result)
		case domain.PlanCreate, domain.PlanAlter:
			attempted++
			a.applyRegister(ctx, batch.ChangeID, actor, item, specByName[item.Name], storageURLs[item.Name], &result)
		}
	}

	status := overallStatus(attempted, len(result.Applied), len(result.Failed))
	auditID, err := a.audit.Terminal(ctx, batch.ChangeID, "APPLY", actor, status,
		fmt.Sprintf("applied=%d skipped=%d failed=%d", len(result.Applied), len(result.Skipped), len(result.Failed)),
		result.Summary())
	if err != nil {
		return domain.ApplyResult{}, err
	}
	result.AuditID = auditID
	return result, nil
}

func (a *SchemaApplier) applyDelete(ctx context.Context, changeID, actor, subject string, result *domain.ApplyResult) {
	if _, err := a.registry.DeleteSubject(ctx, subject); err != nil {
		result.Failed = append(result.Failed, domain.FailedItem{Name: subject, Error: err.Error(), Action: domain.PlanDelete})
		_ = a.audit.Item(ctx, changeID, "DELETE", subject, actor, "delete failed: "+err.Error(), nil)
		return
	}
	// best effort: the subject is already gone from the registry either way.
	_ = a.store.DeleteSchemaArtifact(ctx, subject)
	result.Applied = append(result.Applied, subject)
	_ = a.audit.Item(ctx, changeID, "DELETE", subject, actor, "deleted", nil)
}

func (a *SchemaApplier) applyRegister(ctx context.Context, changeID, actor string, item domain.PlanItem[domain.SchemaSpec], spec domain.SchemaSpec, storageURL string, result *domain.ApplyResult) {
	action := item.Action
	auditAction := "CREATE"
	if action == domain.PlanAlter {
		auditAction = "ALTER_CONFIG"
	}

	text, err := spec.ResolvedText()
	if err != nil {
		result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: err.Error(), Action: action})
		return
	}

	if err := a.registry.SetCompatibilityMode(ctx, item.Name, spec.CompatibilityMode); err != nil {
		result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: "set compatibility mode failed: " + err.Error(), Action: action})
		_ = a.audit.Item(ctx, changeID, auditAction, item.Name, actor, "compatibility mode update failed", nil)
		return
	}

	version, _, err := a.registry.RegisterSchema(ctx, spec, text)
	if err != nil {
		result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: "register failed: " + err.Error(), Action: action})
		_ = a.audit.Item(ctx, changeID, auditAction, item.Name, actor, "register failed: "+err.Error(), nil)
		return
	}

	artifact := domain.SchemaArtifact{
		Subject: item.Name, Version: version, Checksum: checksum(text), StorageURL: storageURL, ChangeID: changeID,
	}
	if err := a.store.SaveSchemaArtifact(ctx, artifact); err != nil {
		result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: "artifact save failed", Action: action})
		_ = a.audit.Item(ctx, changeID, auditAction, item.Name, actor, "artifact save failed", nil)
		return
	}

	result.Applied = append(result.Applied, item.Name)
	result.Artifacts = append(result.Artifacts, artifact)
	_ = a.audit.Item(ctx, changeID, auditAction, item.Name, actor, fmt.Sprintf("registered version %d", version), nil)

	a.bus.Publish(ctx, eventbus.SchemaRegisteredEvent{ChangeID: changeID, Artifact: artifact})
}

func checksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
