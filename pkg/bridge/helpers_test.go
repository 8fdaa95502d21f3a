package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var testLogger = zerolog.Nop()

type recorder struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (r *recorder) HandleEvent(_ context.Context, ev protocol.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Events() []protocol.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Event(nil), r.events...)
}

type invocation struct {
	mode protocol.InvokeMode
	cmd  protocol.Command
}

// fakeHost stands in for both host primitives.
type fakeHost struct {
	mu      sync.Mutex
	subs    map[string]func(json.RawMessage)
	calls   []invocation
	failSub map[string]bool
	respond func(mode protocol.InvokeMode, cmd protocol.Command) (json.RawMessage, error)
}

func newFakeHost() *fakeHost {
	return &fakeHost{subs: map[string]func(json.RawMessage){}, failSub: map[string]bool{}}
}

func (h *fakeHost) Subscribe(_ context.Context, channel string, onEvent func(json.RawMessage)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failSub[channel] {
		return errors.New("subscription refused")
	}
	h.subs[channel] = onEvent
	return nil
}

func (h *fakeHost) push(channel, payload string) {
	h.mu.Lock()
	cb := h.subs[channel]
	h.mu.Unlock()
	if cb != nil {
		cb(json.RawMessage(payload))
	}
}

func (h *fakeHost) subscribed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for ch := range h.subs {
		out = append(out, ch)
	}
	return out
}

func (h *fakeHost) Invoke(_ context.Context, mode protocol.InvokeMode, cmd protocol.Command) (json.RawMessage, error) {
	h.mu.Lock()
	h.calls = append(h.calls, invocation{mode: mode, cmd: cmd})
	respond := h.respond
	h.mu.Unlock()
	if respond != nil {
		return respond(mode, cmd)
	}
	return json.RawMessage(`null`), nil
}

func (h *fakeHost) invocations() []invocation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]invocation(nil), h.calls...)
}

type engine struct {
	host       *fakeHost
	registry   *Registry
	cache      *Cache
	ingestor   *Ingestor
	dispatcher *Dispatcher
}

func newEngine(metrics *Metrics) *engine {
	host := newFakeHost()
	registry := NewRegistry(testLogger, metrics)
	cache := NewCache()
	return &engine{
		host:     host,
		registry: registry,
		cache:    cache,
		ingestor: NewIngestor(IngestorOptions{
			Subscriber:    host,
			Registry:      registry,
			Cache:         cache,
			Channels:      protocol.DefaultChannels(),
			CacheChannels: []string{protocol.ChannelCommandResult},
			Logger:        testLogger,
			Metrics:       metrics,
		}),
		dispatcher: NewDispatcher(DispatcherOptions{
			Invoker:       host,
			Registry:      registry,
			Cache:         cache,
			ResultChannel: protocol.ChannelCommandResult,
			Logger:        testLogger,
			Metrics:       metrics,
		}),
	}
}
