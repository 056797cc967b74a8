// Package rate bounds notification fanout per workspace with a redis-backed
// sliding window, so a bulk re-role in one workspace cannot starve the queue
// for every other workspace.
package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit caps how many jobs one workspace may enqueue per window.
type Limit struct {
	Window  time.Duration
	MaxJobs int
}

// WorkspaceLimiter keeps one sorted set of enqueue timestamps per workspace.
// Entries older than the window are dropped on every check.
type WorkspaceLimiter struct {
	redis *redis.Client
	queue string
	limit Limit
}

func NewWorkspaceLimiter(redisClient *redis.Client, queue string, limit Limit) *WorkspaceLimiter {
	return &WorkspaceLimiter{
		redis: redisClient,
		queue: queue,
		limit: limit,
	}
}

// Allow records one enqueue attempt for the workspace and reports whether it
// fits inside the current window. Entries are scored in nanoseconds so two
// attempts in the same second stay distinct set members.
func (l *WorkspaceLimiter) Allow(ctx context.Context, workspaceID string) (bool, error) {
	key := fmt.Sprintf("notify_rate:%s:workspace:%s", l.queue, workspaceID)

	now := time.Now()
	windowStart := now.Add(-l.limit.Window).UnixNano()

	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, l.limit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	return countCmd.Val() < int64(l.limit.MaxJobs), nil
}
