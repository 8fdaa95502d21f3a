package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/cmdbridge/pkg/bridge"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
)

// ListenerID is the identity the event log registers under.
const ListenerID = "tui.eventlog"

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Forwarder turns bridge events into EventLogAppendMsg.
type Forwarder struct {
	Sender Sender
	// ErrorChannels are rendered as errors.
	ErrorChannels map[string]bool
}

func (f Forwarder) HandleEvent(_ context.Context, ev protocol.Event) error {
	if f.Sender == nil {
		return nil
	}
	f.Sender.Send(EventLogAppendMsg{Entry: EventLogEntry{
		At:      time.Now(),
		Channel: ev.Channel,
		Text:    string(ev.Payload),
		Error:   f.ErrorChannels[ev.Channel],
	}})
	return nil
}

// Attach registers f on every channel and returns a function that removes it.
func Attach(b *bridge.Bridge, channels []string, f Forwarder) func() {
	for _, ch := range channels {
		b.Register(ch, ListenerID, f)
	}
	return func() { b.Unregister(ListenerID) }
}
