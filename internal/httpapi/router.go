// Package httpapi is the thin chi-based HTTP surface over the planner,
// applier, policy engine, and metrics collector (spec.md §6).
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/conn"
	"github.com/kafkagov/controlplane/internal/eventbus"
	"github.com/kafkagov/controlplane/internal/metricscollector"
	"github.com/kafkagov/controlplane/internal/policy"
	"github.com/kafkagov/controlplane/internal/store"
)

// API bundles every collaborator the HTTP handlers need. Handlers are
// methods on API rather than package-level globals, per DESIGN.md's
// redesign away from the teacher's package-global handler functions.
type API struct {
	Store   store.MetadataStore
	Conn    *conn.Manager
	Policy  *policy.Engine
	Metrics *metricscollector.Collector
	Audit   *audit.Service
	Bus     *eventbus.Bus
	Logger  *slog.Logger

	shuttingDown atomic.Bool
}

// NewRouter builds the chi router, grounded on the teacher's
// lake/api/main.go (middleware stack, CORS, health checks).
func (a *API) NewRouter() http.Handler {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOrigins := []string{"*"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsOrigins = strings.Split(origins, ",")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Handle("/internal/metrics", promhttp.Handler())

	r.Route("/topics", func(r chi.Router) {
		r.Get("/", a.handleListTopics)
		r.Post("/batch/dry-run", a.handleTopicDryRun)
		r.Post("/batch/apply", a.handleTopicApply)
		r.Post("/bulk-delete", a.handleTopicBulkDelete)
	})

	r.Route("/schemas", func(r chi.Router) {
		r.Post("/batch/dry-run", a.handleSchemaDryRun)
		r.Post("/batch/apply", a.handleSchemaApply)
		r.Post("/upload", a.handleSchemaUpload)
	})

	r.Route("/metrics", func(r chi.Router) {
		r.Get("/topics/{name}", a.handleTopicMetrics)
		r.Post("/sync", a.handleMetricsSync)
	})

	r.Route("/policies", func(r chi.Router) {
		r.Post("/", a.handleCreatePolicy)
		r.Get("/{policyID}/versions", a.handleListPolicyVersions)
		r.Get("/{policyID}/versions/{version}", a.handleGetPolicy)
		r.Post("/{policyID}/versions/{version}/activate", a.handleActivatePolicy)
		r.Post("/{policyID}/versions/{version}/archive", a.handleArchivePolicy)
		r.Post("/{policyID}/versions/{version}/rollback", a.handleRollbackPolicy)
		r.Delete("/{policyID}/versions/{version}", a.handleDeletePolicy)
	})

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := a.Store.ListActiveClusterIDs(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("metadata store unreachable: " + err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// MarkShuttingDown flips the readiness probe to fail immediately, called
// from cmd/governor-api during graceful shutdown.
func (a *API) MarkShuttingDown() {
	a.shuttingDown.Store(true)
}
