package shortcut

import "context"

// Task is a deferred invocation closure handed to the external executor.
type Task func(ctx context.Context) (any, error)

// TaskHandle is the executor's receipt for a submitted task.
type TaskHandle interface {
	ID() string
}

// Submitter is the consumed task-execution collaborator. Queueing, retry
// and result storage are entirely its concern.
type Submitter interface {
	Submit(ctx context.Context, path string, task Task) (TaskHandle, error)
}
