package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type listenerRecord struct {
	id       string
	handlers map[string]Handler
}

// Registry maps channels to listeners. Records are kept per listener id, with a
// channel index on the side, so Unregister only touches the channels the
// listener actually joined.
type Registry struct {
	mu        sync.Mutex
	listeners map[string]*listenerRecord
	channels  map[string]map[string]struct{}

	logger  zerolog.Logger
	metrics *Metrics
}

func NewRegistry(logger zerolog.Logger, metrics *Metrics) *Registry {
	return &Registry{
		listeners: map[string]*listenerRecord{},
		channels:  map[string]map[string]struct{}{},
		logger:    logger.With().Str("component", "registry").Logger(),
		metrics:   metrics,
	}
}

// Register stores h for (channel, listenerID), replacing any handler already
// registered for that exact pair.
func (r *Registry) Register(channel, listenerID string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.listeners[listenerID]
	if !ok {
		rec = &listenerRecord{id: listenerID, handlers: map[string]Handler{}}
		r.listeners[listenerID] = rec
	}
	rec.handlers[channel] = h

	ids, ok := r.channels[channel]
	if !ok {
		ids = map[string]struct{}{}
		r.channels[channel] = ids
	}
	ids[listenerID] = struct{}{}
}

// Unregister removes listenerID from every channel it joined.
func (r *Registry) Unregister(listenerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.listeners[listenerID]
	if !ok {
		return
	}
	for channel := range rec.handlers {
		ids := r.channels[channel]
		delete(ids, listenerID)
		if len(ids) == 0 {
			delete(r.channels, channel)
		}
	}
	delete(r.listeners, listenerID)
}

type delivery struct {
	id string
	h  Handler
}

// Dispatch delivers ev to every listener registered on channel at call time and
// returns how many handlers were invoked. Handler faults are logged and do not
// stop delivery to the rest.
func (r *Registry) Dispatch(ctx context.Context, channel string, ev protocol.Event) int {
	r.mu.Lock()
	ids := r.channels[channel]
	targets := make([]delivery, 0, len(ids))
	for id := range ids {
		if rec, ok := r.listeners[id]; ok {
			targets = append(targets, delivery{id: id, h: rec.handlers[channel]})
		}
	}
	r.mu.Unlock()

	for _, t := range targets {
		if err := r.deliver(ctx, t, ev); err != nil {
			r.metrics.listenerFault(channel)
			r.logger.Error().
				Err(err).
				Str("channel", channel).
				Str("listener", t.id).
				Msg("listener failed to handle event")
		}
	}
	return len(targets)
}

func (r *Registry) deliver(ctx context.Context, t delivery, ev protocol.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = protocol.NewError(protocol.ErrHandler, fmt.Errorf("panic: %v", p))
		}
	}()
	if t.h == nil {
		return nil
	}
	if err := t.h.HandleEvent(ctx, ev); err != nil {
		return errors.Wrapf(err, "listener %s", t.id)
	}
	return nil
}

// Channels returns the channels listenerID is registered on, sorted.
func (r *Registry) Channels(listenerID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.listeners[listenerID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rec.handlers))
	for ch := range rec.handlers {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Listeners returns the listener ids registered on channel, sorted.
func (r *Registry) Listeners(channel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.channels[channel]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
