package types

import "time"

// TaskStatus represents the current state of a scheduled task
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// TaskAction is the operation a scheduled task performs when due.
type TaskAction string

const (
	ActionStop TaskAction = "stop"
)

// ScheduledTask is a durable request to act on a pod at or after a
// point in time. The alias is captured at schedule time and is not
// re-validated until execution.
type ScheduledTask struct {
	ID        string     `json:"id"`
	Action    TaskAction `json:"action"`
	Alias     string     `json:"alias"`
	WhenEpoch int64      `json:"whenEpoch"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	LastError string     `json:"lastError,omitempty"`
}

// When returns the scheduled execution time.
func (t ScheduledTask) When() time.Time {
	return time.Unix(t.WhenEpoch, 0)
}

// Terminal reports whether the task has reached a final status.
// Pending is the only non-terminal status.
func (t ScheduledTask) Terminal() bool {
	return t.Status != TaskPending
}

// Due reports whether the task should execute at the given epoch.
func (t ScheduledTask) Due(nowEpoch int64) bool {
	return t.Status == TaskPending && t.WhenEpoch <= nowEpoch
}
