// Package logging builds the structured logger shared by every binary in
// this repository. It mirrors the teacher's log/slog usage, adding a tinted
// console handler for local development and plain JSON for production.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Format selects the handler implementation.
type Format string

const (
	FormatJSON Format = "json"
	FormatTint Format = "tint"
)

// Options configures the root logger.
type Options struct {
	Format Format
	Level  slog.Level
	Output io.Writer
}

// New constructs the process-wide slog.Logger. Callers thread it explicitly
// through constructors; nothing in this repository stores it in a package
// variable.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatTint:
		handler = tint.NewHandler(opts.Output, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
		})
	default:
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{Level: opts.Level})
	}

	return slog.New(handler)
}

// WithChangeID returns a logger annotated with a change_id field, the
// correlation id threaded through every audit record for one batch.
func WithChangeID(logger *slog.Logger, changeID string) *slog.Logger {
	return logger.With(slog.String("change_id", changeID))
}

// ctxKey is unexported so other packages cannot collide with it.
type ctxKey struct{}

// IntoContext stashes a logger on a context, mirroring request-scoped
// logging idioms used by the teacher's HTTP middleware stack.
func IntoContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the request-scoped logger, falling back to
// slog.Default() if none was stashed.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
