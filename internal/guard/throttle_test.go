package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidationThrottleFailsOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("nil client allows everything", func(t *testing.T) {
		throttle := NewValidationThrottle(nil, nil, 1, time.Minute)
		for i := 0; i < 10; i++ {
			require.True(t, throttle.Allow(ctx, "198.51.100.7"))
		}
	})

	t.Run("nil receiver allows", func(t *testing.T) {
		var throttle *ValidationThrottle
		require.True(t, throttle.Allow(ctx, "198.51.100.7"))
	})

	t.Run("empty key allows", func(t *testing.T) {
		throttle := NewValidationThrottle(nil, nil, 1, time.Minute)
		require.True(t, throttle.Allow(ctx, ""))
	})
}

func TestValidationThrottleDefaults(t *testing.T) {
	throttle := NewValidationThrottle(nil, nil, 0, 0)
	require.Equal(t, 100, throttle.limit)
	require.Equal(t, time.Hour, throttle.window)
}
