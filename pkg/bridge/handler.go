package bridge

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
)

// Handler consumes events delivered to a registered listener.
type Handler interface {
	HandleEvent(ctx context.Context, ev protocol.Event) error
}

type HandlerFunc func(ctx context.Context, ev protocol.Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, ev protocol.Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, ev)
}

// Invoker is the host's request/response primitive.
type Invoker interface {
	Invoke(ctx context.Context, mode protocol.InvokeMode, cmd protocol.Command) (json.RawMessage, error)
}

type InvokerFunc func(ctx context.Context, mode protocol.InvokeMode, cmd protocol.Command) (json.RawMessage, error)

func (f InvokerFunc) Invoke(ctx context.Context, mode protocol.InvokeMode, cmd protocol.Command) (json.RawMessage, error) {
	return f(ctx, mode, cmd)
}

// Subscriber is the host's push primitive. onEvent fires for every payload
// published on channel for as long as ctx lives, one payload at a time.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, onEvent func(payload json.RawMessage)) error
}
