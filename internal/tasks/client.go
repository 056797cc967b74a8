package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"supchat/internal/tasks/rate"
	"supchat/internal/utils/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TaskClient handles task enqueuing with improved error handling and context support
type TaskClient struct {
	client       *asynq.Client
	logger       *logger.Logger
	redisOptions *redis.Options
	redisClient  *redis.Client
	notifyLimit  *rate.WorkspaceLimiter
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(redisAddr, username, password string, db int) *TaskClient {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Username: username,
		Password: password,
		DB:       db,
	}

	redisClient := redis.NewClient(
		&redis.Options{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		},
	)

	return &TaskClient{
		client: asynq.NewClient(redisOpt),
		redisOptions: &redis.Options{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		},
		redisClient: redisClient,
		notifyLimit: rate.NewWorkspaceLimiter(redisClient, QueueDefault, rate.Limit{
			Window:  time.Minute,
			MaxJobs: 120,
		}),
		logger: logger.New("TASKS"),
	}
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}

// EnqueueInviteSweep queues one expiry sweep run on the background queue.
func (c *TaskClient) EnqueueInviteSweep(ctx context.Context, ttlHours int) error {
	payload, err := json.Marshal(InviteSweepPayload{TTLHours: ttlHours})
	if err != nil {
		return fmt.Errorf("failed to marshal invite sweep payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeInviteSweep, payload)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutMedium),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue invite sweep: %w", err)
	}

	c.logger.Info("enqueued invite sweep %s", info.ID)
	return nil
}

// EnqueuePermissionChanged queues a role-change notification. Fanout is rate
// limited per workspace so a bulk re-role does not flood the queue; dropped
// notifications are only a delivery loss, the permission record is already
// written.
func (c *TaskClient) EnqueuePermissionChanged(ctx context.Context, change PermissionChangedPayload) error {
	allowed, err := c.notifyLimit.Allow(ctx, change.WorkspaceID)
	if err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		c.logger.Warn("dropping permission change notification for workspace %s, rate limited", change.WorkspaceID)
		return nil
	}

	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal permission change payload: %w", err)
	}

	task := asynq.NewTask(TaskTypePermissionChanged, payload)
	if _, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutShort),
	); err != nil {
		return fmt.Errorf("failed to enqueue permission change: %w", err)
	}
	return nil
}

// EnqueueMembershipChanged queues a removal notification on the critical
// queue; revoking a removed member's pending invitations should not wait
// behind background work.
func (c *TaskClient) EnqueueMembershipChanged(ctx context.Context, change MembershipChangedPayload) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal membership change payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeMembershipChanged, payload)
	if _, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutShort),
	); err != nil {
		return fmt.Errorf("failed to enqueue membership change: %w", err)
	}
	return nil
}
