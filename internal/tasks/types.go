package tasks

import "time"

// Task Types
const (
	// Authorization maintenance tasks
	TaskTypeInviteSweep       = "invites:sweep"
	TaskTypePermissionChanged = "permission:changed"
	TaskTypeMembershipChanged = "membership:changed"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like email sending
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like cleanup
)

// Task Priorities (1-10, higher is more important)
const (
	PriorityCritical = 10
	PriorityHigh     = 8
	PriorityNormal   = 5
	PriorityLow      = 3
	PriorityBG       = 1
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// DefaultInviteTTLHours is how long a pending channel invitation stays valid
// when no TTL is configured.
const DefaultInviteTTLHours = 168
