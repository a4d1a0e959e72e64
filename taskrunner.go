package themis

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// TaskRunner is a thin wrapper over errgroup used to bound fan-out concurrency,
// e.g. the scanner's row prefetch (§4.12) and the janitor's per-sweep lock checks
// (§4.13). Any task error cancels the shared context and is returned from Wait.
type TaskRunner struct {
	eg      *errgroup.Group
	context context.Context
}

// NewTaskRunner creates a task runner bounded to maxThreadCount concurrent goroutines.
// maxThreadCount <= 0 means unbounded.
func NewTaskRunner(ctx context.Context, maxThreadCount int) *TaskRunner {
	eg, ctx2 := errgroup.WithContext(ctx)
	if maxThreadCount > 0 {
		eg.SetLimit(maxThreadCount)
	}
	return &TaskRunner{
		eg:      eg,
		context: ctx2,
	}
}

// GetContext returns the context passed to the spawned tasks, cancelled as soon as
// any task returns a non-nil error.
func (tr *TaskRunner) GetContext() context.Context {
	return tr.context
}

// Go spawns task on a new goroutine bound by the runner's concurrency limit.
func (tr *TaskRunner) Go(task func() error) {
	tr.eg.Go(task)
}

// Wait blocks until all spawned tasks complete, returning the first non-nil error.
func (tr *TaskRunner) Wait() error {
	return tr.eg.Wait()
}
