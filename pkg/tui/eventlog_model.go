package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	channelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ExecuteFunc runs a command typed at the prompt.
type ExecuteFunc func(command string, args json.RawMessage, forceRefresh bool) tea.Cmd

type promptMode int

const (
	promptNone promptMode = iota
	promptFilter
	promptCommand
)

type EventLogModel struct {
	max     int
	entries []EventLogEntry

	width  int
	height int

	mode   promptMode
	input  textinput.Model
	filter string

	forceRefresh bool
	status       string
	execute      ExecuteFunc

	vp viewport.Model
}

func NewEventLogModel(execute ExecuteFunc) EventLogModel {
	input := textinput.New()
	input.CharLimit = 400

	m := EventLogModel{max: 500, input: input, execute: execute}
	m.vp = viewport.New(0, 0)
	return m
}

func (m EventLogModel) Init() tea.Cmd { return nil }

func (m EventLogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := v.Width, v.Height
		if w <= 0 {
			w = 80
		}
		if h <= 0 {
			h = 24
		}
		m.width, m.height = w, h
		m = m.resizeViewport()
		return m, nil
	case EventLogAppendMsg:
		return m.Append(v.Entry), nil
	case CommandDoneMsg:
		m.status = describeResult(v)
		return m, nil
	case tea.KeyMsg:
		if m.mode != promptNone {
			return m.updatePrompt(v)
		}

		switch v.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "/":
			return m.openPrompt(promptFilter, "/ ", m.filter), nil
		case ":":
			return m.openPrompt(promptCommand, ": ", ""), nil
		case "R":
			m.forceRefresh = !m.forceRefresh
			return m, nil
		case "ctrl+l":
			m.filter = ""
			m = m.refreshViewportContent(true)
			return m, nil
		case "c":
			m.entries = nil
			m = m.refreshViewportContent(true)
			return m, nil
		}

		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(v)
		return m, cmd
	}
	return m, nil
}

func (m EventLogModel) openPrompt(mode promptMode, prompt, value string) EventLogModel {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

func (m EventLogModel) updatePrompt(v tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch v.String() {
	case "esc":
		m.mode = promptNone
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = promptNone
		m.input.Blur()
		if mode == promptFilter {
			m.filter = value
			m = m.refreshViewportContent(true)
			return m, nil
		}
		return m.runCommand(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(v)
	return m, cmd
}

// runCommand parses "name [json-args]".
func (m EventLogModel) runCommand(line string) (tea.Model, tea.Cmd) {
	if line == "" || m.execute == nil {
		return m, nil
	}
	name, rest, _ := strings.Cut(line, " ")
	var args json.RawMessage
	if rest = strings.TrimSpace(rest); rest != "" {
		if !json.Valid([]byte(rest)) {
			m.status = errorStyle.Render("args are not valid json")
			return m, nil
		}
		args = json.RawMessage(rest)
	}
	m.status = fmt.Sprintf("sent %s", name)
	return m, m.execute(name, args, m.forceRefresh)
}

func describeResult(v CommandDoneMsg) string {
	r := v.Result
	switch {
	case r.Err != nil:
		return errorStyle.Render(fmt.Sprintf("%s failed: %v", r.Command, r.Err))
	case r.Replayed:
		return fmt.Sprintf("%s replayed from cache", r.Command)
	default:
		return fmt.Sprintf("%s acknowledged", r.Command)
	}
}

func (m EventLogModel) Append(e EventLogEntry) EventLogModel {
	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append([]EventLogEntry{}, m.entries[len(m.entries)-m.max:]...)
	}
	m = m.refreshViewportContent(true)
	return m
}

func (m EventLogModel) Entries() []EventLogEntry {
	return m.entries
}

func (m EventLogModel) View() string {
	var b strings.Builder
	filterLabel := ""
	if m.filter != "" {
		filterLabel = fmt.Sprintf(" filter=%q", m.filter)
	}
	refresh := "off"
	if m.forceRefresh {
		refresh = "on"
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("Events:%s  force-refresh=%s", filterLabel, refresh)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(": command, / filter, R toggle refresh, ctrl+l clear filter, c clear, q quit"))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
	}
	b.WriteString("\n")

	if m.mode != promptNone {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if len(m.entries) == 0 {
		b.WriteString("(no events yet)\n")
		return b.String()
	}
	b.WriteString(m.vp.View())
	return b.String()
}

func (m EventLogModel) resizeViewport() EventLogModel {
	usableHeight := m.height - 5
	if usableHeight < 3 {
		usableHeight = 3
	}
	m.vp.Width = max(0, m.width)
	m.vp.Height = usableHeight
	m = m.refreshViewportContent(false)
	return m
}

func (m EventLogModel) refreshViewportContent(gotoBottom bool) EventLogModel {
	if len(m.entries) == 0 {
		m.vp.SetContent("")
		return m
	}
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if m.filter != "" && !strings.Contains(e.Text, m.filter) && !strings.Contains(e.Channel, m.filter) {
			continue
		}
		ts := e.At
		if ts.IsZero() {
			ts = time.Now()
		}
		text := e.Text
		if e.Error {
			text = errorStyle.Render(text)
		}
		lines = append(lines, fmt.Sprintf("- %s %s %s", ts.Format("15:04:05"), channelStyle.Render(e.Channel), text))
	}
	m.vp.SetContent(strings.Join(lines, "\n") + "\n")
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}
