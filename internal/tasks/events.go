package tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"supchat/internal/authz"
	"supchat/internal/events"
)

// SubscribeEvents bridges the in-process event bus onto the task queues.
// Handlers run on the bus goroutines, so enqueue failures are logged and
// dropped rather than propagated to the emitting request.
func SubscribeEvents(client *TaskClient) {
	events.On(events.PermissionChanged, func(data interface{}) {
		change, ok := data.(*authz.PermissionChange)
		if !ok {
			return
		}
		if err := client.EnqueuePermissionChanged(context.Background(), PermissionChangedPayload{
			UserID:      change.UserID,
			WorkspaceID: change.WorkspaceID,
			Role:        string(change.Role),
		}); err != nil {
			client.logger.Warn("failed to enqueue permission change: %v", err)
		}
	})

	events.On(events.MemberRemoved, func(data interface{}) {
		change, ok := data.(*authz.MembershipChange)
		if !ok {
			return
		}
		if err := client.EnqueueMembershipChanged(context.Background(), MembershipChangedPayload{
			UserID:      change.UserID,
			WorkspaceID: change.WorkspaceID,
			ChannelID:   change.ChannelID,
		}); err != nil {
			client.logger.Warn("failed to enqueue membership change: %v", err)
		}
	})

	events.On(events.InviteCreated, func(data interface{}) {
		// The hourly scheduler entry already sweeps expired invitations. The
		// one-shot at the next hour boundary covers the window where the
		// scheduler process is down.
		payload, err := json.Marshal(InviteSweepPayload{})
		if err != nil {
			return
		}
		task := asynq.NewTask(TaskTypeInviteSweep, payload)
		if _, err := client.client.EnqueueContext(context.Background(), task,
			CronSchedule("0 * * * *"),
			asynq.Queue(QueueLow),
			asynq.MaxRetry(RetryMin),
			asynq.Timeout(TimeoutMedium),
		); err != nil {
			client.logger.Warn("failed to enqueue invite sweep: %v", err)
		}
	})
}
