package httpapi

import (
	"net/http"

	"github.com/kafkagov/controlplane/internal/applier"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/planner"
	"github.com/kafkagov/controlplane/internal/schemaregistry"
)

func registryID(r *http.Request) string {
	return r.URL.Query().Get("registry_id")
}

// handleSchemaDryRun serves POST /schemas/batch/dry-run?registry_id=….
func (a *API) handleSchemaDryRun(w http.ResponseWriter, r *http.Request) {
	var dto schemaBatchDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	batch, err := dto.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}

	registry, err := a.schemaRegistryFor(r, registryID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := a.planSchemaBatch(r, registry, batch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleSchemaApply serves POST /schemas/batch/apply?registry_id=….
func (a *API) handleSchemaApply(w http.ResponseWriter, r *http.Request) {
	var dto schemaBatchDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	batch, err := dto.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}

	registry, err := a.schemaRegistryFor(r, registryID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := a.planSchemaBatch(r, registry, batch)
	if err != nil {
		writeError(w, err)
		return
	}
	if !plan.CanApply() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"violations": plan.ErrorViolations()})
		return
	}

	app := applier.NewSchemaApplier(registry, a.Store, a.Audit, a.Bus)
	// Direct batch applies carry no object-storage backing; only the
	// upload flow (handleSchemaUpload) writes source bytes and supplies
	// storageURLs, since the versioned artifact key needs the version
	// Schema Registry assigns during registration.
	result, err := app.Apply(r.Context(), batch, plan, actorOf(r), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if len(result.Failed) > 0 && len(result.Applied) == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// planSchemaBatch runs the shared pipeline: policy validation -> live
// subject describe -> compatibility check -> diff (spec.md §4.E.1, §4.E.3).
func (a *API) planSchemaBatch(r *http.Request, registry *schemaregistry.Client, batch domain.Batch[domain.SchemaSpec]) (domain.Plan[domain.SchemaSpec], error) {
	subjects := make([]string, 0, len(batch.Specs))
	for _, spec := range batch.Specs {
		subjects = append(subjects, spec.Subject)
	}
	current, err := registry.DescribeSubjects(r.Context(), subjects)
	if err != nil {
		return domain.Plan[domain.SchemaSpec]{}, err
	}

	violations, err := a.Policy.ValidateSchemaBatch(r.Context(), batch.Specs)
	if err != nil {
		return domain.Plan[domain.SchemaSpec]{}, err
	}

	return planner.PlanSchemaBatch(r.Context(), batch, current, registry, violations)
}
