package host

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Bus carries backend pushes over an in-process watermill Pub/Sub, one topic
// per channel. Publish blocks until subscribers have acked, which keeps events
// on a channel in publish order.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		}, watermill.NopLogger{}),
		logger: logger.With().Str("component", "bus").Logger(),
	}
}

func (b *Bus) Publisher() message.Publisher { return b.pubsub }

// Subscribe implements bridge.Subscriber. Each message is acked once onEvent
// returns.
func (b *Bus) Subscribe(ctx context.Context, channel string, onEvent func(payload json.RawMessage)) error {
	msgs, err := b.pubsub.Subscribe(ctx, channel)
	if err != nil {
		return errors.Wrapf(err, "subscribe topic %s", channel)
	}
	go func() {
		for msg := range msgs {
			b.logger.Debug().Str("channel", channel).Str("uuid", msg.UUID).Msg("delivering message")
			onEvent(json.RawMessage(msg.Payload))
			msg.Ack()
		}
	}()
	return nil
}

// Emit publishes payload on channel. Raw JSON is sent as is, anything else is
// marshaled first.
func (b *Bus) Emit(channel string, payload any) error {
	raw, err := protocol.MarshalArgs(payload)
	if err != nil {
		return errors.Wrap(err, "encode payload")
	}
	if raw == nil {
		raw = json.RawMessage(`null`)
	}
	if err := b.pubsub.Publish(channel, message.NewMessage(watermill.NewUUID(), message.Payload(raw))); err != nil {
		return errors.Wrapf(err, "publish %s", channel)
	}
	return nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
