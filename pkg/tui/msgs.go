package tui

import (
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
)

type EventLogEntry struct {
	At      time.Time
	Channel string
	Text    string
	Error   bool
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

// CommandDoneMsg reports the outcome of a command issued from the prompt.
type CommandDoneMsg struct {
	Result protocol.Result
}
