package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Ingestor feeds backend pushes into the registry and the result cache.
type Ingestor struct {
	sub           Subscriber
	registry      *Registry
	cache         *Cache
	channels      []string
	cacheChannels map[string]bool

	logger  zerolog.Logger
	metrics *Metrics

	mu      sync.Mutex
	started bool
}

type IngestorOptions struct {
	Subscriber Subscriber
	Registry   *Registry
	Cache      *Cache
	// Channels are subscribed once by Start.
	Channels []string
	// CacheChannels lists the channels whose events are written to the cache.
	CacheChannels []string
	Logger        zerolog.Logger
	Metrics       *Metrics
}

func NewIngestor(opts IngestorOptions) *Ingestor {
	cc := make(map[string]bool, len(opts.CacheChannels))
	for _, ch := range opts.CacheChannels {
		cc[ch] = true
	}
	return &Ingestor{
		sub:           opts.Subscriber,
		registry:      opts.Registry,
		cache:         opts.Cache,
		channels:      append([]string(nil), opts.Channels...),
		cacheChannels: cc,
		logger:        opts.Logger.With().Str("component", "ingestor").Logger(),
		metrics:       opts.Metrics,
	}
}

// Start subscribes to every configured channel. Subscriptions last as long
// as ctx.
func (in *Ingestor) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.started {
		in.mu.Unlock()
		return errors.New("ingestor already started")
	}
	in.started = true
	in.mu.Unlock()

	if in.sub == nil {
		return errors.New("missing Subscriber")
	}
	for _, ch := range in.channels {
		channel := ch
		err := in.sub.Subscribe(ctx, channel, func(payload json.RawMessage) {
			in.Ingest(ctx, channel, payload)
		})
		if err != nil {
			return errors.Wrapf(err, "subscribe %s", channel)
		}
		in.logger.Debug().Str("channel", channel).Msg("subscribed")
	}
	return nil
}

// Ingest handles one payload received on channel.
func (in *Ingestor) Ingest(ctx context.Context, channel string, payload json.RawMessage) protocol.Event {
	in.logger.Debug().Str("channel", channel).Msg("received event")
	in.metrics.eventIngested(channel)

	ev := protocol.Event{Channel: channel, Payload: payload}
	in.registry.Dispatch(ctx, channel, ev)

	if !in.cacheChannels[channel] {
		return ev
	}
	command := ParseCommand(in.logger, payload)
	in.cache.Set(CacheKey(command), ev)
	return ev
}
