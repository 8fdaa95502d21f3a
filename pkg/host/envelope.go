package host

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
)

// CallFunc is the raw host invoke primitive: a host command name and its
// argument blob.
type CallFunc func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)

// Envelope is the argument blob of the execute_command and
// execute_sync_command host entry points. CommandStr holds the JSON encoded
// protocol.Command.
type Envelope struct {
	CommandStr string `json:"commandstr"`
}

func EncodeEnvelope(cmd protocol.Command) (json.RawMessage, error) {
	inner, err := json.Marshal(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "marshal command")
	}
	b, err := json.Marshal(Envelope{CommandStr: string(inner)})
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	return b, nil
}

func DecodeEnvelope(blob json.RawMessage) (protocol.Command, error) {
	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return protocol.Command{}, errors.Wrap(err, "parse envelope")
	}
	if env.CommandStr == "" {
		return protocol.Command{}, errors.New("envelope has no commandstr")
	}
	var cmd protocol.Command
	if err := json.Unmarshal([]byte(env.CommandStr), &cmd); err != nil {
		return protocol.Command{}, errors.Wrap(err, "parse commandstr")
	}
	if cmd.Name == "" {
		return protocol.Command{}, errors.New("commandstr has no command")
	}
	return cmd, nil
}

// EnvelopeInvoker implements bridge.Invoker by wrapping every command into
// the envelope expected by the host entry points.
type EnvelopeInvoker struct {
	Call CallFunc
}

func (e EnvelopeInvoker) Invoke(ctx context.Context, mode protocol.InvokeMode, cmd protocol.Command) (json.RawMessage, error) {
	if e.Call == nil {
		return nil, errors.New("missing CallFunc")
	}
	blob, err := EncodeEnvelope(cmd)
	if err != nil {
		return nil, err
	}
	return e.Call(ctx, mode.Entry(), blob)
}
