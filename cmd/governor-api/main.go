// Command governor-api serves the HTTP control plane: topic and schema
// batch planning/apply, metrics snapshots, and policy administration
// (spec.md §6).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/conn"
	"github.com/kafkagov/controlplane/internal/config"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/eventbus"
	"github.com/kafkagov/controlplane/internal/httpapi"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
	"github.com/kafkagov/controlplane/internal/logging"
	"github.com/kafkagov/controlplane/internal/metricscollector"
	"github.com/kafkagov/controlplane/internal/objstorage"
	"github.com/kafkagov/controlplane/internal/policy"
	"github.com/kafkagov/controlplane/internal/schemaregistry"
	"github.com/kafkagov/controlplane/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "governor-api",
	Short: "HTTP control plane for Kafka topic, schema, and policy governance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	var flags *pflag.FlagSet = rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "", "optional .env file to load before reading the process environment")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return fmt.Errorf("governor-api: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("governor-api: %w", err)
	}

	logger := logging.New(logging.Options{Format: logging.Format(cfg.LogFormat), Level: slog.LevelInfo})
	logger.Info("starting governor-api", "version", version, "commit", commit)

	pg, err := store.OpenPostgres(ctx, store.PgConfig{DSN: cfg.MetadataStoreDSN})
	if err != nil {
		return fmt.Errorf("governor-api: open metadata store: %w", err)
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

	policyEngine := policy.NewEngine(pg, cfg.PolicyFailClosed)
	auditSvc := audit.New(pg, nil)
	bus := eventbus.New()
	bus.Subscribe(eventbus.LoggingSubscriber(logger))

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

	api := &httpapi.API{
		Store:   pg,
		Conn:    connManager,
		Policy:  policyEngine,
		Metrics: collector,
		Audit:   auditSvc,
		Bus:     bus,
		Logger:  logger,
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("governor-api listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-shutdown
	logger.Info("received signal, shutting down", "signal", sig.String())
	api.MarkShuttingDown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown error", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}
	return nil
}
