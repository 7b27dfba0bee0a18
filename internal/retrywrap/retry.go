// Package retrywrap provides the transport-retry wrapper shared by the
// Kafka admin, Schema Registry, and object-storage adapters. Only
// whole-call transport failures are retried; per-item business errors
// (e.g. TOPIC_ALREADY_EXISTS) are never retried — they are mapped straight
// into the adapter's per-item error map instead (spec.md §4.D).
package retrywrap

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config bounds one retry sequence.
type Config struct {
	MaxTries    uint
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultConfig mirrors the teacher's retry defaults
// (controlplane/s3-uploader/internal/retry.DefaultConfig): a handful of
// attempts with exponential backoff.
func DefaultConfig() Config {
	return Config{MaxTries: 3, InitialWait: 500 * time.Millisecond, MaxWait: 5 * time.Second}
}

// Do retries fn on error using exponential backoff, honoring ctx
// cancellation between attempts.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialWait
	bo.MaxInterval = cfg.MaxWait

	return backoff.Retry(ctx, func() (T, error) {
		return fn(ctx)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(cfg.MaxTries))
}
