package httpapi

import (
	"net/http"
	"strings"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/applier"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/planner"
)

func actorOf(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "unknown"
}

type topicListEntry struct {
	Name              string   `json:"name"`
	Owners            []string `json:"owners"`
	PartitionCount    int      `json:"partition_count"`
	ReplicationFactor int      `json:"replication_factor"`
	Environment       string   `json:"environment"`
	Tags              []string `json:"tags"`
	Doc               string   `json:"doc"`
}

// handleListTopics serves GET /topics?cluster_id=… by joining the live
// Kafka roster with persisted ownership metadata (spec.md §6).
func (a *API) handleListTopics(w http.ResponseWriter, r *http.Request) {
	id := clusterID(r)
	admin, err := a.kafkaAdminFor(r, id)
	if err != nil {
		writeError(w, err)
		return
	}

	names, err := admin.ListTopics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	descriptions, err := admin.DescribeTopics(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]topicListEntry, 0, len(descriptions))
	for name, desc := range descriptions {
		entry := topicListEntry{
			Name:              name,
			PartitionCount:    desc.PartitionCount,
			ReplicationFactor: desc.ReplicationFactor,
			Environment:       string(domain.EnvironmentOf(name)),
		}
		if row, err := a.Store.GetTopicMetadata(r.Context(), name); err == nil && row != nil {
			if row.Owner != "" {
				entry.Owners = strings.Split(row.Owner, ",")
			}
			entry.Doc = row.Doc
			entry.Tags = row.Tags
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTopicDryRun serves POST /topics/batch/dry-run?cluster_id=….
func (a *API) handleTopicDryRun(w http.ResponseWriter, r *http.Request) {
	var dto topicBatchDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	batch, err := dto.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}

	admin, err := a.kafkaAdminFor(r, clusterID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	names := specNames(batch)
	current, err := admin.DescribeTopics(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}
	violations, err := a.Policy.ValidateTopicBatch(r.Context(), batch.Specs)
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := planner.PlanTopicBatch(batch, current, domain.TopicConfig{}, violations)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleTopicApply serves POST /topics/batch/apply?cluster_id=…. It
// replans against live state immediately before applying so a dry-run
// result staged earlier by the caller is never trusted blindly.
func (a *API) handleTopicApply(w http.ResponseWriter, r *http.Request) {
	var dto topicBatchDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	batch, err := dto.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}

	admin, err := a.kafkaAdminFor(r, clusterID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	names := specNames(batch)
	current, err := admin.DescribeTopics(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}
	violations, err := a.Policy.ValidateTopicBatch(r.Context(), batch.Specs)
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := planner.PlanTopicBatch(batch, current, domain.TopicConfig{}, violations)
	if err != nil {
		writeError(w, err)
		return
	}
	if !plan.CanApply() {
		actor := actorOf(r)
		if err := a.Audit.Started(r.Context(), batch.ChangeID, "APPLY", batch.ChangeID, actor, ""); err != nil {
			writeError(w, err)
			return
		}
		if _, err := a.Audit.Terminal(r.Context(), batch.ChangeID, "APPLY", actor, domain.AuditFailed,
			"blocked by policy guardrail; resolve violations and re-run dry-run", map[string]any{"violations": plan.ErrorViolations()}); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"violations": plan.ErrorViolations()})
		return
	}

	app := applier.NewTopicApplier(admin, a.Store, a.Audit, a.Logger)
	result, err := app.Apply(r.Context(), batch, plan, actorOf(r))
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

// handleTopicBulkDelete serves POST /topics/bulk-delete?cluster_id=….
func (a *API) handleTopicBulkDelete(w http.ResponseWriter, r *http.Request) {
	var names []string
	if err := decodeJSON(r, &names); err != nil {
		writeError(w, err)
		return
	}
	if len(names) == 0 {
		writeError(w, apperrors.Invariant("bulk-delete requires at least one topic name"))
		return
	}

	admin, err := a.kafkaAdminFor(r, clusterID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	perName, err := admin.DeleteTopics(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}

	var succeeded, failed []string
	for _, name := range names {
		if err := perName[name]; err != nil {
			failed = append(failed, name)
			continue
		}
		_ = a.Store.DeleteTopicMetadata(r.Context(), name)
		succeeded = append(succeeded, name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"succeeded": succeeded,
		"failed":    failed,
		"message":   bulkDeleteMessage(len(succeeded), len(failed)),
	})
}

func bulkDeleteMessage(succeeded, failed int) string {
	if failed == 0 {
		return "all topics deleted"
	}
	if succeeded == 0 {
		return "all deletes failed"
	}
	return "some deletes failed"
}

func specNames(batch domain.Batch[domain.TopicSpec]) []string {
	names := make([]string, 0, len(batch.Specs))
	for _, spec := range batch.Specs {
		names = append(names, spec.Name)
	}
	return names
}
