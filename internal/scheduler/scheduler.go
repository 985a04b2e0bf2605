// Package scheduler owns the scheduled task lifecycle: durable pending
// tasks, a tick entrypoint driven by an external periodic trigger, and
// cleanup of finished tasks.
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/danpasecinic/rpod/internal/state"
	"github.com/danpasecinic/rpod/internal/types"
)

// PodStopper performs the stop action for a due task. Stopping an
// already-stopped pod must be a no-op: a tick can re-attempt a task if
// the process died between the remote call and the status write.
type PodStopper interface {
	StopPod(alias string) error
}

// Engine manages scheduled tasks on top of the store. It holds no state
// of its own; every operation loads fresh and persists atomically.
type Engine struct {
	store *state.Store
	pods  PodStopper
	newID func() string
}

// New creates an engine over the store. pods may be nil for engines
// that only schedule, list, or cancel.
func New(store *state.Store, pods PodStopper) *Engine {
	return &Engine{
		store: store,
		pods:  pods,
		newID: uuid.NewString,
	}
}

// Schedule creates a pending task for alias at the given absolute time.
// A past time is legal: the task becomes due on the next tick.
func (e *Engine) Schedule(alias string, action types.TaskAction, when time.Time) (types.ScheduledTask, error) {
	if action != types.ActionStop {
		return types.ScheduledTask{}, fmt.Errorf("unsupported task action %q", action)
	}
	if alias == "" {
		return types.ScheduledTask{}, fmt.Errorf("task alias cannot be empty")
	}

	task := types.ScheduledTask{
		ID:        e.newID(),
		Action:    action,
		Alias:     alias,
		WhenEpoch: when.Unix(),
		Status:    types.TaskPending,
		CreatedAt: time.Now().UTC(),
	}

	err := e.store.MutateTasks(func(tasks []types.ScheduledTask) ([]types.ScheduledTask, error) {
		return append(tasks, task), nil
	})
	if err != nil {
		return types.ScheduledTask{}, err
	}
	return task, nil
}

// List returns all scheduled tasks, pending and terminal.
func (e *Engine) List() ([]types.ScheduledTask, error) {
	return e.store.LoadTasks()
}

// Cancel transitions a pending task to cancelled. Cancelling a task
// that is already terminal is not an error: the task is returned
// unchanged with cancelled=false so the caller can warn.
func (e *Engine) Cancel(taskID string) (types.ScheduledTask, bool, error) {
	var result types.ScheduledTask
	cancelled := false

	err := e.store.MutateTasks(func(tasks []types.ScheduledTask) ([]types.ScheduledTask, error) {
		for i, task := range tasks {
			if task.ID != taskID {
				continue
			}
			if task.Terminal() {
				result = task
				return tasks, nil
			}
			tasks[i].Status = types.TaskCancelled
			result = tasks[i]
			cancelled = true
			return tasks, nil
		}
		return nil, state.ErrTaskNotFound
	})
	if err != nil {
		return types.ScheduledTask{}, false, err
	}
	return result, cancelled, nil
}

// Result is the outcome of one task execution attempt during a tick.
type Result struct {
	Task types.ScheduledTask
	Err  error
}

// Tick executes every due task: pending, scheduled time at or before
// now. Tasks run in ascending scheduled-time order with the ID as a
// deterministic tiebreak. A failing task is recorded as failed and does
// not stop the rest of the batch. Execution is at-least-once: the
// status is persisted only after the action, so a crash in between
// re-attempts the task on the next tick.
func (e *Engine) Tick(now time.Time) ([]Result, error) {
	tasks, err := e.store.LoadTasks()
	if err != nil {
		return nil, err
	}

	nowEpoch := now.Unix()
	var due []types.ScheduledTask
	for _, task := range tasks {
		if task.Due(nowEpoch) {
			due = append(due, task)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].WhenEpoch != due[j].WhenEpoch {
			return due[i].WhenEpoch < due[j].WhenEpoch
		}
		return due[i].ID < due[j].ID
	})

	results := make([]Result, 0, len(due))
	for _, task := range due {
		execErr := e.execute(task)

		status := types.TaskCompleted
		lastError := ""
		if execErr != nil {
			status = types.TaskFailed
			lastError = execErr.Error()
		}
		if err := e.markTask(task.ID, status, lastError); err != nil {
			// Worse than a failed action: the outcome could not be
			// recorded. Surface it and let the next tick retry.
			return results, err
		}

		task.Status = status
		task.LastError = lastError
		results = append(results, Result{Task: task, Err: execErr})
	}
	return results, nil
}

func (e *Engine) execute(task types.ScheduledTask) error {
	switch task.Action {
	case types.ActionStop:
		if e.pods == nil {
			return fmt.Errorf("no pod capability configured")
		}
		return e.pods.StopPod(task.Alias)
	default:
		return fmt.Errorf("unsupported task action %q", task.Action)
	}
}

func (e *Engine) markTask(taskID string, status types.TaskStatus, lastError string) error {
	return e.store.MutateTasks(func(tasks []types.ScheduledTask) ([]types.ScheduledTask, error) {
		for i := range tasks {
			if tasks[i].ID == taskID {
				tasks[i].Status = status
				tasks[i].LastError = lastError
				return tasks, nil
			}
		}
		return nil, state.ErrTaskNotFound
	})
}

// Clean purges completed and cancelled tasks. Failed tasks stay until
// the operator deals with them; hiding errors silently is worse than a
// long task list. Returns the number removed.
func (e *Engine) Clean() (int, error) {
	removed := 0
	err := e.store.MutateTasks(func(tasks []types.ScheduledTask) ([]types.ScheduledTask, error) {
		kept := tasks[:0]
		for _, task := range tasks {
			if task.Status == types.TaskCompleted || task.Status == types.TaskCancelled {
				removed++
				continue
			}
			kept = append(kept, task)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
