package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kafkagov/controlplane/internal/apperrors"
)

// handleTopicMetrics serves GET /metrics/topics/{name}?cluster_id=….
func (a *API) handleTopicMetrics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id := clusterID(r)

	snap, err := a.Metrics.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	topic, ok := snap.Topics[name]
	if !ok {
		writeError(w, apperrors.NotFound("topic", name))
		return
	}

	min, max, avg := snap.TopicPartitionSizes(name)
	writeJSON(w, http.StatusOK, map[string]any{
		"cluster_id":   id,
		"captured_at":  snap.CapturedAt,
		"name":         name,
		"partitions":   topic.PartitionDetails,
		"size_min":     min,
		"size_max":     max,
		"size_avg":     avg,
	})
}

// handleMetricsSync serves POST /metrics/sync?cluster_id=…, triggering an
// async refresh and returning immediately (spec.md §6).
func (a *API) handleMetricsSync(w http.ResponseWriter, r *http.Request) {
	id := clusterID(r)
	go func() {
		// Detached from the request context: the sync must outlive the
		// handler that triggered it.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := a.Metrics.Collect(ctx, id); err != nil {
			a.Logger.Error("async metrics sync failed", "cluster_id", id, "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id, "status": "processing"})
}
