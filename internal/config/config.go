// Package config defines the explicit AppConfig threaded through every
// constructor in this repository. There is no package-level mutable
// configuration state anywhere else in the tree.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is process-level configuration. Per spec.md §6, endpoint
// credentials (cluster/registry/storage connection details) live in the
// EndpointStore, not here — AppConfig only carries the store URL, the
// shared-cache URL, and process tuning knobs.
type AppConfig struct {
	// MetadataStoreDSN is the Postgres connection string for the
	// MetadataStore (audit log, plan/apply results, policies, endpoints).
	MetadataStoreDSN string

	// CacheRedisAddr is the shared L2 metrics-cache Redis address.
	CacheRedisAddr     string
	CacheRedisPassword string
	CacheRedisDB       int

	// HTTPAddr is the listen address for cmd/governor-api.
	HTTPAddr string

	// CollectInterval is how often cmd/governor-collector snapshots every
	// active cluster. Default 5m per spec.md §4.F.
	CollectInterval time.Duration

	// RetentionCleanupHourUTC is the hour (0-23) the daily retention sweep
	// runs at. Default 2 (02:00 UTC) per spec.md §4.F.
	RetentionCleanupHourUTC int

	// MetricsRetentionDays is how many days of L3 snapshots are kept.
	MetricsRetentionDays int

	// MetricsL1TTL is the configured process-local cache TTL. Default 15s.
	// internal/metricscollector does not read it: its L1 TTL is the fixed
	// l1TTL constant (15s).
	MetricsL1TTL time.Duration

	// MetricsL2TTL is the configured shared-cache TTL, defaulting to
	// MetricsL1TTL. internal/metricscollector does not read it either: its
	// L2 TTL is the fixed l2TTL constant (15s).
	MetricsL2TTL time.Duration

	// PolicyFailClosed selects the fail-closed behavior for malformed
	// policy rows (spec.md §9 Open Question #1; see DESIGN.md). Default
	// false (fail-open with a synthetic violation).
	PolicyFailClosed bool

	// CollectorWorkers bounds the per-tick fan-out pool size.
	CollectorWorkers int

	// LogFormat selects "json" or "tint" (see internal/logging).
	LogFormat string
}

// Validate fills in defaults for zero-valued fields and rejects
// configurations that cannot possibly run, mirroring the teacher's
// Config.Validate() idiom (telemetry/flow-ingest/internal/server/config.go)
// rather than panicking or relying on package-level defaults.
func (c *AppConfig) Validate() error {
	if c.MetadataStoreDSN == "" {
		return fmt.Errorf("config: METADATA_STORE_DSN is required")
	}
	if c.CacheRedisAddr == "" {
		return fmt.Errorf("config: CACHE_REDIS_ADDR is required")
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.CollectInterval <= 0 {
		c.CollectInterval = 5 * time.Minute
	}
	if c.RetentionCleanupHourUTC < 0 || c.RetentionCleanupHourUTC > 23 {
		c.RetentionCleanupHourUTC = 2
	}
	if c.MetricsRetentionDays <= 0 {
		c.MetricsRetentionDays = 7
	}
	if c.MetricsL1TTL <= 0 {
		c.MetricsL1TTL = 15 * time.Second
	}
	if c.MetricsL2TTL <= 0 {
		c.MetricsL2TTL = c.MetricsL1TTL
	}
	if c.CollectorWorkers <= 0 {
		c.CollectorWorkers = 8
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.LogFormat != "json" && c.LogFormat != "tint" {
		return fmt.Errorf("config: LOG_FORMAT must be json or tint, got %q", c.LogFormat)
	}
	return nil
}

// FromEnv loads AppConfig from the process environment, optionally reading
// a .env file first (teacher convention for local development). It does not
// call Validate(); callers must do so explicitly so defaulting errors are
// visible at the call site rather than hidden inside the loader.
func FromEnv(envFile string) (AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return AppConfig{}, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	cfg := AppConfig{
		MetadataStoreDSN:  os.Getenv("METADATA_STORE_DSN"),
		CacheRedisAddr:    os.Getenv("CACHE_REDIS_ADDR"),
		CacheRedisPassword: os.Getenv("CACHE_REDIS_PASSWORD"),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		LogFormat:         os.Getenv("LOG_FORMAT"),
	}

	if v := os.Getenv("CACHE_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("config: CACHE_REDIS_DB must be an integer: %w", err)
		}
		cfg.CacheRedisDB = n
	}
	if v := os.Getenv("COLLECT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("config: COLLECT_INTERVAL invalid duration: %w", err)
		}
		cfg.CollectInterval = d
	}
	if v := os.Getenv("RETENTION_CLEANUP_HOUR_UTC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("config: RETENTION_CLEANUP_HOUR_UTC must be an integer: %w", err)
		}
		cfg.RetentionCleanupHourUTC = n
	}
	if v := os.Getenv("METRICS_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("config: METRICS_RETENTION_DAYS must be an integer: %w", err)
		}
		cfg.MetricsRetentionDays = n
	}
	if v := os.Getenv("POLICY_FAIL_CLOSED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("config: POLICY_FAIL_CLOSED must be a bool: %w", err)
		}
		cfg.PolicyFailClosed = b
	}

	return cfg, nil
}
