// Command governor-collector runs the scheduled metrics collection loop:
// a periodic snapshot sweep across every active cluster and a daily
// retention cleanup of stale snapshots (spec.md §4.F).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/conn"
	"github.com/kafkagov/controlplane/internal/config"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
	"github.com/kafkagov/controlplane/internal/logging"
	"github.com/kafkagov/controlplane/internal/metricscollector"
	"github.com/kafkagov/controlplane/internal/objstorage"
	"github.com/kafkagov/controlplane/internal/schemaregistry"
	"github.com/kafkagov/controlplane/internal/store"
)

var (
	version = "dev"
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "governor-collector",
	Short: "Scheduled metrics collection and retention cleanup for Kafka clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load before reading the process environment")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(parent context.Context) error {
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return fmt.Errorf("governor-collector: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("governor-collector: %w", err)
	}

	logger := logging.New(logging.Options{Format: logging.Format(cfg.LogFormat), Level: slog.LevelInfo})
	logger.Info("starting governor-collector", "version", version, "interval", cfg.CollectInterval)

	pg, err := store.OpenPostgres(parent, store.PgConfig{DSN: cfg.MetadataStoreDSN})
	if err != nil {
		return fmt.Errorf("governor-collector: open metadata store: %w", err)
	}
	defer pg.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.CacheRedisAddr,
		Password: cfg.CacheRedisPassword,
		DB:       cfg.CacheRedisDB,
	})
	defer redisClient.Close()

	connManager := conn.New(pg,
		func(ctx context.Context, ep domain.ClusterEndpoint) (any, error) { return kafkaadmin.New(ctx, ep) },
		func(ctx context.Context, ep domain.RegistryEndpoint) (any, error) { return schemaregistry.New(ctx, ep) },
		func(ctx context.Context, ep domain.StorageEndpoint) (any, string, error) { return objstorage.New(ctx, ep) },
	)

	adminResolver := func(ctx context.Context, clusterID string) (metricscollector.KafkaAdmin, error) {
		c, err := connManager.GetKafkaAdmin(ctx, clusterID)
		if err != nil {
			return nil, err
		}
		client, ok := c.(*kafkaadmin.Client)
		if !ok {
			return nil, apperrors.Backend("kafkaadmin", apperrors.Invariant("cluster %s: unexpected admin client type", clusterID))
		}
		return client, nil
	}
	collector := metricscollector.New(adminResolver, pg, redisClient, cfg.CollectorWorkers)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &worker{
		log:       logger,
		collector: collector,
		clock:     clockwork.NewRealClock(),
		interval:  cfg.CollectInterval,
		cleanupHour: cfg.RetentionCleanupHourUTC,
		retentionDays: cfg.MetricsRetentionDays,
	}
	return w.run(ctx)
}

// worker ticks the collection sweep on cfg.CollectInterval and runs the
// retention cleanup once a day at cleanupHour UTC, mirroring the teacher's
// ticker-driven Run/tick split (device-health-oracle/internal/worker).
type worker struct {
	log           *slog.Logger
	collector     *metricscollector.Collector
	clock         clockwork.Clock
	interval      time.Duration
	cleanupHour   int
	retentionDays int

	lastCleanupDay int
}

func (w *worker) run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("shutting down collector")
			return nil
		case <-ticker.Chan():
			w.tick(ctx)
		}
	}
}

func (w *worker) tick(ctx context.Context) {
	now := w.clock.Now().UTC()

	results := w.collector.CollectAll(ctx)
	failed := 0
	for clusterID, err := range results {
		if err != nil {
			failed++
			w.log.Error("snapshot collection failed", "cluster_id", clusterID, "error", err)
		}
	}
	w.log.Info("collection sweep complete", "clusters", len(results), "failed", failed)

	if now.Hour() == w.cleanupHour && now.YearDay() != w.lastCleanupDay {
		w.lastCleanupDay = now.YearDay()
		n, err := w.collector.Cleanup(ctx, w.retentionDays)
		if err != nil {
			w.log.Error("retention cleanup failed", "error", err)
			return
		}
		w.log.Info("retention cleanup complete", "deleted", n, "retention_days", w.retentionDays)
	}
}
