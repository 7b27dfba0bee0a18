package config_test

import (
	"testing"
	"time"

	"github.com/kafkagov/controlplane/internal/config"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("fills defaults", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{
			MetadataStoreDSN: "postgres://localhost/gov",
			CacheRedisAddr:   "localhost:6379",
		}
		require.NoError(t, cfg.Validate())
		require.Equal(t, ":8080", cfg.HTTPAddr)
		require.Equal(t, 5*time.Minute, cfg.CollectInterval)
		require.Equal(t, 2, cfg.RetentionCleanupHourUTC)
		require.Equal(t, 7, cfg.MetricsRetentionDays)
		require.Equal(t, 15*time.Second, cfg.MetricsL1TTL)
		require.Equal(t, 15*time.Second, cfg.MetricsL2TTL)
		require.Equal(t, 8, cfg.CollectorWorkers)
		require.Equal(t, "json", cfg.LogFormat)
		require.False(t, cfg.PolicyFailClosed)
	})

	t.Run("requires metadata store dsn", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{CacheRedisAddr: "localhost:6379"}
		require.Error(t, cfg.Validate())
	})

	t.Run("requires cache redis addr", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{MetadataStoreDSN: "postgres://localhost/gov"}
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects bad log format", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{
			MetadataStoreDSN: "postgres://localhost/gov",
			CacheRedisAddr:   "localhost:6379",
			LogFormat:        "yaml",
		}
		require.Error(t, cfg.Validate())
	})

	t.Run("normalizes out-of-range retention hour", func(t *testing.T) {
		t.Parallel()
		cfg := config.AppConfig{
			MetadataStoreDSN:        "postgres://localhost/gov",
			CacheRedisAddr:          "localhost:6379",
			RetentionCleanupHourUTC: 99,
		}
		require.NoError(t, cfg.Validate())
		require.Equal(t, 2, cfg.RetentionCleanupHourUTC)
	})
}
