// Package shutdownqueue provides a LIFO queue of cleanup tasks drained once
// at process exit.
//
// Components register their cleanup via Add as they are constructed, and
// main drains the queue at the end:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	defer shutdownqueue.Shutdown(ctx)
//
// Tasks run once, in reverse order of registration. Panics are recovered.
// Shutdown is idempotent and returns an aggregated error via errors.Join.
// The package-level functions operate on a process-wide default Queue; tests
// and embedded servers can build their own with New.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is a shutdown function. It should honor ctx and return an error
// if it can't finish (or ctx is canceled).
type Task func(ctx context.Context) error

// Queue holds named cleanup tasks.
type Queue struct {
	mu     sync.Mutex
	tasks  []namedTask
	closed bool
}

type namedTask struct {
	name string
	run  Task
}

var defaultQueue = New()

func New() *Queue {
	return &Queue{tasks: make([]namedTask, 0, 8)}
}

// Add registers a task on the default queue.
func Add(name string, t Task) { defaultQueue.Add(name, t) }

// Shutdown drains the default queue.
func Shutdown(ctx context.Context) error { return defaultQueue.Shutdown(ctx) }

// Add registers a task to be run on Shutdown, in LIFO order.
// Safe to call from any goroutine.
// If t is nil or shutdown has already started, Add does nothing.
func (q *Queue) Add(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.tasks = append(q.tasks, namedTask{name: name, run: t})
}

// Len reports the number of tasks still waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Shutdown drains all registered tasks in LIFO order.
// After the first run, subsequent calls are no-ops.
//
// If ctx is canceled mid-drain, Shutdown stops early and returns the
// context error joined with any task errors so far. Task errors are
// prefixed with the task name.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed {
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
			errs = append(errs, fmt.Errorf("shutdown canceled before %q: %w", tasks[i].name, ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		err := runTask(ctx, tasks[i])
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func runTask(ctx context.Context, t namedTask) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("%s: panic in shutdown task: %v", t.name, r)
		}
	}()

	err = t.run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}

	return nil
}
