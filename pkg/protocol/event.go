package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Event is a normalized backend event. Channel always names the subscription
// that received it, never anything carried inside Payload.
type Event struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command is a named request sent to the backend.
type Command struct {
	Name string          `json:"command"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Result is the outcome of one scheduled or replayed command.
type Result struct {
	Command  string          `json:"command"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Err      error           `json:"-"`
	Replayed bool            `json:"replayed,omitempty"`
}

func (r Result) Ok() bool { return r.Err == nil }

// MarshalArgs turns an arbitrary Go value into an args blob. Nil and
// already-encoded values pass through.
func MarshalArgs(v any) (json.RawMessage, error) {
	switch a := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return a, nil
	case []byte:
		if !json.Valid(a) {
			return nil, errors.New("args are not valid json")
		}
		return json.RawMessage(a), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal args")
	}
	return b, nil
}
