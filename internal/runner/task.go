package runner

import (
	"context"
	"time"
)

// Task is one recurring mail chore: draining the outbound queue, polling
// the reply mailbox, sweeping the drop directory.
type Task interface {
	// Name identifies the task in logs and in the registry.
	Name() string

	// Schedule is a six-field cron expression, seconds included.
	Schedule() string

	// Run performs a single pass over the task's backlog.
	Run(ctx context.Context) error

	// Timeout bounds one pass so a stuck mailbox cannot stack runs.
	Timeout() time.Duration
}

// TaskRegistry collects tasks in registration order, which is also the
// order they are scheduled in.
type TaskRegistry struct {
	names map[string]int
	tasks []Task
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{names: make(map[string]int)}
}

// Register adds a task, replacing any earlier task with the same name.
func (r *TaskRegistry) Register(task Task) {
	if i, ok := r.names[task.Name()]; ok {
		r.tasks[i] = task
		return
	}
	r.names[task.Name()] = len(r.tasks)
	r.tasks = append(r.tasks, task)
}

// Get returns the named task.
func (r *TaskRegistry) Get(name string) (Task, bool) {
	i, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return r.tasks[i], true
}

// All returns the tasks in registration order.
func (r *TaskRegistry) All() []Task {
	out := make([]Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}
