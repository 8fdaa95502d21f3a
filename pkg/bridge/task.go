package bridge

import (
	"context"
	"sync"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
)

// Task is a scheduled or replayed command. It completes exactly once.
type Task struct {
	once sync.Once
	done chan struct{}
	res  protocol.Result
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func completedTask(res protocol.Result) *Task {
	t := newTask()
	t.complete(res)
	return t
}

func (t *Task) complete(res protocol.Result) bool {
	fired := false
	t.once.Do(func() {
		t.res = res
		close(t.done)
		fired = true
	})
	return fired
}

func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes or ctx ends.
func (t *Task) Wait(ctx context.Context) (protocol.Result, error) {
	select {
	case <-t.done:
		return t.res, nil
	case <-ctx.Done():
		return protocol.Result{}, ctx.Err()
	}
}

// Result returns the outcome and whether the task has completed.
func (t *Task) Result() (protocol.Result, bool) {
	select {
	case <-t.done:
		return t.res, true
	default:
		return protocol.Result{}, false
	}
}
