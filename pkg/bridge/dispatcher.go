package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultInvokeDelay = 50 * time.Millisecond

// Dispatcher runs commands, either by replaying a cached result or by
// scheduling a backend invocation.
type Dispatcher struct {
	invoker       Invoker
	registry      *Registry
	cache         *Cache
	resultChannel string
	delay         time.Duration

	logger  zerolog.Logger
	metrics *Metrics

	wg sync.WaitGroup
}

type DispatcherOptions struct {
	Invoker  Invoker
	Registry *Registry
	Cache    *Cache
	// ResultChannel receives cache replays.
	ResultChannel string
	// InvokeDelay is waited before each invocation is submitted. Zero submits
	// on the next scheduler turn.
	InvokeDelay time.Duration
	Logger      zerolog.Logger
	Metrics     *Metrics
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		invoker:       opts.Invoker,
		registry:      opts.Registry,
		cache:         opts.Cache,
		resultChannel: opts.ResultChannel,
		delay:         opts.InvokeDelay,
		logger:        opts.Logger.With().Str("component", "dispatcher").Logger(),
		metrics:       opts.Metrics,
	}
}

// ExecuteCommand replays the cached result for name to the result channel's
// listeners, or schedules an invocation when nothing is cached or
// forceRefresh is set. A replayed task is already complete when returned.
// For an invocation, the task reports the backend's acknowledgement; the
// answer itself arrives as a routed event.
func (d *Dispatcher) ExecuteCommand(ctx context.Context, name string, args json.RawMessage, forceRefresh bool) *Task {
	if !forceRefresh {
		ev, ok := d.cache.Get(CacheKey(name))
		d.metrics.cacheLookup(ok)
		if ok {
			d.logger.Debug().Str("command", name).Msg("replaying cached result")
			d.registry.Dispatch(ctx, d.resultChannel, ev)
			return completedTask(protocol.Result{Command: name, Payload: ev.Payload, Replayed: true})
		}
	}

	d.logger.Debug().Str("command", name).Bool("force_refresh", forceRefresh).Msg("sending command")
	return d.schedule(ctx, protocol.InvokeAsync, protocol.Command{Name: name, Args: args}, nil)
}

// ExecuteSyncCommand always invokes the backend and hands the raw outcome to
// callback exactly once. It never reads or writes the cache and never
// dispatches to listeners. A nil callback is allowed.
func (d *Dispatcher) ExecuteSyncCommand(ctx context.Context, name string, args json.RawMessage, callback func(protocol.Result)) *Task {
	if callback == nil {
		callback = func(protocol.Result) {}
	}
	return d.schedule(ctx, protocol.InvokeSync, protocol.Command{Name: name, Args: args}, callback)
}

// Wait blocks until every scheduled invocation has completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// schedule submits cmd after the invoke delay. The submission itself is not
// withdrawn when ctx ends; ctx is handed to the invoker.
func (d *Dispatcher) schedule(ctx context.Context, mode protocol.InvokeMode, cmd protocol.Command, callback func(protocol.Result)) *Task {
	t := newTask()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if d.delay > 0 {
			timer := time.NewTimer(d.delay)
			<-timer.C
		}

		res := d.invoke(ctx, mode, cmd)
		if callback != nil {
			d.runCallback(callback, res)
		}
		t.complete(res)
	}()
	return t
}

func (d *Dispatcher) runCallback(callback func(protocol.Result), res protocol.Result) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error().Interface("panic", p).Str("command", res.Command).Msg("sync callback panicked")
		}
	}()
	callback(res)
}

func (d *Dispatcher) invoke(ctx context.Context, mode protocol.InvokeMode, cmd protocol.Command) (res protocol.Result) {
	res.Command = cmd.Name
	defer func() {
		if p := recover(); p != nil {
			res.Payload = nil
			res.Err = protocol.NewError(protocol.ErrInvoke, errors.Errorf("invoker panic: %v", p))
		}
		d.metrics.invocation(mode.String(), res.Err)
		if res.Err != nil {
			d.logger.Error().
				Err(res.Err).
				Str("command", cmd.Name).
				Stringer("mode", mode).
				Msg("backend invocation failed")
		}
	}()

	if d.invoker == nil {
		res.Err = protocol.NewError(protocol.ErrInvoke, errors.New("missing Invoker"))
		return res
	}
	payload, err := d.invoker.Invoke(ctx, mode, cmd)
	if err != nil {
		switch {
		case protocol.CodeOf(err) != "":
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			err = protocol.NewError(protocol.ErrCanceled, errors.Wrapf(err, "invoke %s", cmd.Name))
		default:
			err = protocol.NewError(protocol.ErrInvoke, errors.Wrapf(err, "invoke %s", cmd.Name))
		}
		res.Err = err
		return res
	}
	res.Payload = payload
	return res
}
