package eventbus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/eventbus"
)

func TestBus_PublishInvokesAllSubscribersInOrder(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	var got []string
	bus.Subscribe(func(_ context.Context, evt eventbus.SchemaRegisteredEvent) {
		got = append(got, "first:"+evt.Artifact.Subject)
	})
	bus.Subscribe(func(_ context.Context, evt eventbus.SchemaRegisteredEvent) {
		got = append(got, "second:"+evt.Artifact.Subject)
	})

	bus.Publish(context.Background(), eventbus.SchemaRegisteredEvent{
		ChangeID: "chg-1",
		Artifact: domain.SchemaArtifact{Subject: "dev.orders-value", Version: 1},
	})

	require.Equal(t, []string{"first:dev.orders-value", "second:dev.orders-value"}, got)
}

func TestBus_PublishSurvivesSubscriberPanic(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	var secondCalled bool
	bus.Subscribe(func(_ context.Context, _ eventbus.SchemaRegisteredEvent) {
		panic("boom")
	})
	bus.Subscribe(func(_ context.Context, _ eventbus.SchemaRegisteredEvent) {
		secondCalled = true
	})

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), eventbus.SchemaRegisteredEvent{ChangeID: "chg-1"})
	})
	require.True(t, secondCalled)
}
