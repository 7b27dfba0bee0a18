// Package eventbus is a minimal in-process pub-sub primitive, kept as a
// thin fan-out rather than introducing a message broker dependency for a
// single in-process subscriber (spec.md §9 REDESIGN FLAGS).
package eventbus

import (
	"context"
	"log/slog"

	"github.com/kafkagov/controlplane/internal/domain"
)

// SchemaRegisteredEvent is published by the schema applier after a
// successful registration (spec.md §4.E.5).
type SchemaRegisteredEvent struct {
	ChangeID string
	Artifact domain.SchemaArtifact
}

// Handler receives published events. Handlers must not block the publisher
// for long; the bus invokes them synchronously in publish order.
type Handler func(ctx context.Context, evt SchemaRegisteredEvent)

// Bus is a single-topic pub-sub for SchemaRegisteredEvent, the only event
// this system currently emits (spec.md §4.E.5).
type Bus struct {
	handlers []Handler
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h to receive every future Publish call.
func (b *Bus) Subscribe(h Handler) {
	b.handlers = append(b.handlers, h)
}

// Publish invokes every subscriber in order. A subscriber's failure to
// handle (observed only via recover, since Handler has no error return)
// never propagates to the publisher, per spec.md §4.E.5's "failures in
// event publication are logged but never fail the apply".
func (b *Bus) Publish(ctx context.Context, evt SchemaRegisteredEvent) {
	for _, h := range b.handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "eventbus: subscriber panicked",
						"change_id", evt.ChangeID, "subject", evt.Artifact.Subject, "panic", r)
				}
			}()
			h(ctx, evt)
		}()
	}
}

// LoggingSubscriber is the sole built-in subscriber: it logs every schema
// registration at INFO for operator visibility.
func LoggingSubscriber(logger *slog.Logger) Handler {
	return func(ctx context.Context, evt SchemaRegisteredEvent) {
		logger.InfoContext(ctx, "schema registered",
			"change_id", evt.ChangeID, "subject", evt.Artifact.Subject, "version", evt.Artifact.Version)
	}
}
