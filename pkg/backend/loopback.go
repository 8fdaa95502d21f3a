// Package backend provides an in-process stand-in for the out-of-process
// backend. It answers the host entry points behind host.EnvelopeInvoker and
// pushes results through an Emitter, the same way the real backend emits
// window events.
package backend

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/go-go-golems/cmdbridge/pkg/host"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Emitter pushes a payload onto a channel. host.Bus implements it.
type Emitter interface {
	Emit(channel string, payload any) error
}

// HandlerFunc answers one backend command.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

var ErrUnknownCommand = errors.New("unknown command")

// ResultPayload is pushed on the result channel when an async command succeeds.
type ResultPayload struct {
	Command string `json:"command"`
	Data    any    `json:"data"`
}

// ErrorPayload is pushed on the error channel when an async command fails.
type ErrorPayload struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

type Loopback struct {
	emitter       Emitter
	resultChannel string
	errorChannel  string
	logger        zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	script   *Script
}

type Options struct {
	Emitter Emitter
	// ResultChannel defaults to protocol.ChannelCommandResult.
	ResultChannel string
	// ErrorChannel defaults to protocol.ChannelAppError.
	ErrorChannel string
	Logger       zerolog.Logger
}

func NewLoopback(opts Options) *Loopback {
	l := &Loopback{
		emitter:       opts.Emitter,
		resultChannel: opts.ResultChannel,
		errorChannel:  opts.ErrorChannel,
		logger:        opts.Logger.With().Str("component", "backend").Logger(),
		handlers:      map[string]HandlerFunc{},
	}
	if l.resultChannel == "" {
		l.resultChannel = protocol.ChannelCommandResult
	}
	if l.errorChannel == "" {
		l.errorChannel = protocol.ChannelAppError
	}
	return l
}

// Handle registers a Go handler for command. Go handlers take precedence over
// the script.
func (l *Loopback) Handle(command string, h HandlerFunc) {
	l.mu.Lock()
	l.handlers[command] = h
	l.mu.Unlock()
}

func (l *Loopback) UseScript(s *Script) {
	l.mu.Lock()
	l.script = s
	l.mu.Unlock()
}

// Commands lists the commands with a Go handler.
func (l *Loopback) Commands() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.handlers))
	for name := range l.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invoker returns a bridge.Invoker that calls this backend through the
// command envelope.
func (l *Loopback) Invoker() host.EnvelopeInvoker {
	return host.EnvelopeInvoker{Call: l.Call}
}

// Call implements host.CallFunc.
func (l *Loopback) Call(ctx context.Context, name string, blob json.RawMessage) (json.RawMessage, error) {
	cmd, err := host.DecodeEnvelope(blob)
	if err != nil {
		return nil, protocol.NewError(protocol.ErrParse, err)
	}

	switch name {
	case protocol.InvokeExecuteSyncCommand:
		data, err := l.run(ctx, cmd)
		if err != nil {
			return nil, protocol.NewError(protocol.ErrRemote, err)
		}
		out, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrapf(err, "encode result of %s", cmd.Name)
		}
		return out, nil

	case protocol.InvokeExecuteCommand:
		data, err := l.run(ctx, cmd)
		if err != nil {
			l.logger.Warn().Err(err).Str("command", cmd.Name).Msg("command failed")
			if emitErr := l.emit(l.errorChannel, ErrorPayload{Command: cmd.Name, Error: err.Error()}); emitErr != nil {
				return nil, emitErr
			}
			return json.RawMessage(`null`), nil
		}
		if err := l.emit(l.resultChannel, ResultPayload{Command: cmd.Name, Data: data}); err != nil {
			return nil, err
		}
		return json.RawMessage(`null`), nil
	}

	return nil, protocol.NewError(protocol.ErrRemote, errors.Errorf("unknown host entry point %q", name))
}

func (l *Loopback) emit(channel string, payload any) error {
	if l.emitter == nil {
		return errors.New("missing Emitter")
	}
	return errors.Wrapf(l.emitter.Emit(channel, payload), "emit %s", channel)
}

func (l *Loopback) run(ctx context.Context, cmd protocol.Command) (any, error) {
	l.mu.RLock()
	h, ok := l.handlers[cmd.Name]
	script := l.script
	l.mu.RUnlock()

	l.logger.Debug().Str("command", cmd.Name).Msg("running command")
	if ok {
		return h(ctx, cmd.Args)
	}
	if script != nil {
		return script.Run(ctx, cmd.Name, cmd.Args)
	}
	return nil, errors.Wrap(ErrUnknownCommand, cmd.Name)
}
