package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to subscribers of the published type", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher()

		var issued, swept int
		dispatcher.Subscribe(EventTokenIssued, func(ctx context.Context, e Event) error {
			issued++
			return nil
		})
		dispatcher.Subscribe(EventTokensSwept, func(ctx context.Context, e Event) error {
			swept++
			return nil
		})

		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTokenIssued}))
		require.Equal(t, 1, issued)
		require.Zero(t, swept)
	})

	t.Run("handler failure does not block later handlers", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher()

		var reached bool
		dispatcher.Subscribe(EventTokenRejected, func(ctx context.Context, e Event) error {
			return errors.New("webhook down")
		})
		dispatcher.Subscribe(EventTokenRejected, func(ctx context.Context, e Event) error {
			reached = true
			return nil
		})

		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTokenRejected}))
		require.True(t, reached)
	})

	t.Run("publish without subscribers is a no-op", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher()
		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTokenValidated}))
	})
}
