// Package bridge is the command/event engine between a UI process and an
// out-of-process backend.
//
// A Bridge owns one Registry (listeners per channel), one Cache (last result
// per command), an Ingestor that routes backend pushes into both, and a
// Dispatcher that runs commands against the backend or replays cached
// results. Construct one per application and pass it to the components that
// need it.
package bridge

import (
	"context"
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Invoker    Invoker
	Subscriber Subscriber

	// Channels defaults to protocol.DefaultChannels().
	Channels []string
	// ResultChannel defaults to protocol.ChannelCommandResult.
	ResultChannel string
	// CacheChannels defaults to the result channel only.
	CacheChannels []string
	// InvokeDelay defaults to DefaultInvokeDelay. Negative means no delay.
	InvokeDelay time.Duration

	Logger  *zerolog.Logger
	Metrics *Metrics
}

type Bridge struct {
	registry   *Registry
	cache      *Cache
	ingestor   *Ingestor
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

func New(opts Options) (*Bridge, error) {
	if opts.Invoker == nil {
		return nil, errors.New("missing Invoker")
	}
	if opts.Subscriber == nil {
		return nil, errors.New("missing Subscriber")
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	channels := opts.Channels
	if len(channels) == 0 {
		channels = protocol.DefaultChannels()
	}
	resultChannel := opts.ResultChannel
	if resultChannel == "" {
		resultChannel = protocol.ChannelCommandResult
	}
	cacheChannels := opts.CacheChannels
	if len(cacheChannels) == 0 {
		cacheChannels = []string{resultChannel}
	}
	delay := opts.InvokeDelay
	switch {
	case delay == 0:
		delay = DefaultInvokeDelay
	case delay < 0:
		delay = 0
	}

	registry := NewRegistry(logger, opts.Metrics)
	cache := NewCache()
	b := &Bridge{
		registry: registry,
		cache:    cache,
		ingestor: NewIngestor(IngestorOptions{
			Subscriber:    opts.Subscriber,
			Registry:      registry,
			Cache:         cache,
			Channels:      channels,
			CacheChannels: cacheChannels,
			Logger:        logger,
			Metrics:       opts.Metrics,
		}),
		dispatcher: NewDispatcher(DispatcherOptions{
			Invoker:       opts.Invoker,
			Registry:      registry,
			Cache:         cache,
			ResultChannel: resultChannel,
			InvokeDelay:   delay,
			Logger:        logger,
			Metrics:       opts.Metrics,
		}),
		logger: logger,
	}
	return b, nil
}

// Start subscribes the ingestor to the backend channels.
func (b *Bridge) Start(ctx context.Context) error {
	return b.ingestor.Start(ctx)
}

func (b *Bridge) Registry() *Registry     { return b.registry }
func (b *Bridge) Cache() *Cache           { return b.cache }
func (b *Bridge) Ingestor() *Ingestor     { return b.ingestor }
func (b *Bridge) Dispatcher() *Dispatcher { return b.dispatcher }
func (b *Bridge) Logger() zerolog.Logger  { return b.logger }
func (b *Bridge) Wait()                   { b.dispatcher.Wait() }

func (b *Bridge) Register(channel, listenerID string, h Handler) {
	b.registry.Register(channel, listenerID, h)
}

func (b *Bridge) Unregister(listenerID string) {
	b.registry.Unregister(listenerID)
}

// ExecuteCommand marshals args and forwards to the dispatcher. Arguments that
// cannot be encoded produce a completed task carrying the fault.
func (b *Bridge) ExecuteCommand(ctx context.Context, name string, args any, forceRefresh bool) *Task {
	raw, err := protocol.MarshalArgs(args)
	if err != nil {
		return completedTask(protocol.Result{Command: name, Err: protocol.NewError(protocol.ErrInvoke, err)})
	}
	return b.dispatcher.ExecuteCommand(ctx, name, raw, forceRefresh)
}

func (b *Bridge) ExecuteSyncCommand(ctx context.Context, name string, args any, callback func(protocol.Result)) *Task {
	raw, err := protocol.MarshalArgs(args)
	if err != nil {
		res := protocol.Result{Command: name, Err: protocol.NewError(protocol.ErrInvoke, err)}
		if callback != nil {
			callback(res)
		}
		return completedTask(res)
	}
	return b.dispatcher.ExecuteSyncCommand(ctx, name, raw, callback)
}
