// Package shutdownqueue keeps a process-wide LIFO queue of cleanup tasks.
//
// Components register their teardown via Add as they start up, and main
// drains everything in reverse order on exit:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	defer shutdownqueue.Shutdown(ctx)
//
// Each task runs at most once. A panicking task is recovered and reported
// as an error. Shutdown is idempotent; all task errors come back joined
// with errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is a cleanup function. It should honor ctx and return an error
// when it cannot finish in time.
type Task func(ctx context.Context) error

var q = struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
}{}

// Add registers a task to run during Shutdown. Tasks run in reverse
// registration order. Nil tasks, and tasks added after shutdown has
// started, are ignored.
func Add(t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.tasks = append(q.tasks, t)
}

// Shutdown drains the registered tasks LIFO. Calling it again after the
// first drain is a no-op.
//
// When ctx expires mid-drain, the remaining tasks are skipped and the
// context error is included in the joined result.
func Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed && len(q.tasks) == 0 {
		q.mu.Unlock()

		return nil
	}

	q.closed = true
	tasks := q.tasks
	q.tasks = nil

	q.mu.Unlock()

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		errs = append(errs, runTask(ctx, tasks[i]))
	}

	return errors.Join(errs...)
}

func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in shutdown task: %v", r)
		}
	}()

	return t(ctx)
}
