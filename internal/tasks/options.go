package tasks

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// CronSchedule returns an option that delays the task until the next
// occurrence of the cron expression. Unlike the scheduler's entries this is a
// one-shot delay computed at enqueue time.
func CronSchedule(expr string) asynq.Option {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		// Fall back to a fixed delay if the expression does not parse.
		return asynq.ProcessIn(1 * time.Hour)
	}
	return asynq.ProcessAt(schedule.Next(time.Now()))
}
