package bridge

import (
	"bytes"
	"encoding/json"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/rs/zerolog"
)

type payloadShape int

const (
	shapeAbsent payloadShape = iota
	shapeInvalid
	shapeObject
	shapeScalar
)

func (s payloadShape) String() string {
	switch s {
	case shapeAbsent:
		return "absent"
	case shapeInvalid:
		return "invalid"
	case shapeObject:
		return "object"
	default:
		return "scalar"
	}
}

func classifyPayload(payload json.RawMessage) payloadShape {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return shapeAbsent
	}
	if !json.Valid(trimmed) {
		return shapeInvalid
	}
	if trimmed[0] == '{' {
		return shapeObject
	}
	return shapeScalar
}

type commandField struct {
	Command json.RawMessage `json:"command"`
}

// ParseCommand extracts the command identifier a payload claims to answer.
// It never fails: unusable payloads yield protocol.UnknownCommand.
func ParseCommand(logger zerolog.Logger, payload json.RawMessage) string {
	shape := classifyPayload(payload)
	if shape != shapeObject {
		logger.Warn().Stringer("shape", shape).Msg("failed to parse command: payload is not an object")
		return protocol.UnknownCommand
	}

	var f commandField
	if err := json.Unmarshal(payload, &f); err != nil {
		logger.Warn().Err(err).Msg("failed to parse payload")
		return protocol.UnknownCommand
	}
	if len(f.Command) == 0 {
		logger.Warn().Msg("failed to parse command: payload has no command field")
		return protocol.UnknownCommand
	}

	var name string
	if err := json.Unmarshal(f.Command, &name); err != nil || name == "" {
		logger.Warn().RawJSON("command", f.Command).Msg("failed to parse command: command is not a string")
		return protocol.UnknownCommand
	}
	return name
}
