package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceLimiterAllow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewWorkspaceLimiter(client, "default", Limit{Window: time.Minute, MaxJobs: 3})
	ctx := context.Background()

	t.Run("admits up to the cap and then refuses", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := limiter.Allow(ctx, "ws-a")
			require.NoError(t, err)
			require.True(t, allowed)
		}
		allowed, err := limiter.Allow(ctx, "ws-a")
		require.NoError(t, err)
		require.False(t, allowed)
	})

	t.Run("workspaces are limited independently", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "ws-b")
		require.NoError(t, err)
		require.True(t, allowed)
	})

	t.Run("a saturated workspace recovers after the window", func(t *testing.T) {
		mr.FastForward(3 * time.Minute)
		allowed, err := limiter.Allow(ctx, "ws-a")
		require.NoError(t, err)
		require.True(t, allowed)
	})
}
