// ABOUTME: Full-screen chat using the bubbletea framework
// ABOUTME: Enter sends, a number picks from the last choice card, Esc cancels the running turn
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/deskhand/dispatch"
	"github.com/harperreed/deskhand/session"
)

// Conversation is the part of a session the chat drives.
type Conversation interface {
	Send(ctx context.Context, input string) ([]dispatch.ResultMessage, error)
	Select(ctx context.Context, sel dispatch.Selection) ([]dispatch.ResultMessage, error)
	Cancel()
}

// turnMsg carries a finished turn back to Update. seq identifies the turn it belongs to.
type turnMsg struct {
	seq  int
	msgs []dispatch.ResultMessage
	err  error
}

// ChatModel is the bubbletea model for the chat screen.
type ChatModel struct {
	ctx     context.Context
	conv    Conversation
	input   textinput.Model
	lines   []string
	choices Chooser

	// seq is bumped per turn and on cancel; results for other seqs are dropped.
	seq  int
	busy bool

	width  int
	height int
}

// NewChatModel creates the chat screen over conv.
func NewChatModel(ctx context.Context, conv Conversation) ChatModel {
	in := textinput.New()
	in.Placeholder = "Ask about your calendar, tasks, contacts, files, notes or mail"
	in.Prompt = "› "
	in.CharLimit = 2000
	in.Focus()

	return ChatModel{
		ctx:    ctx,
		conv:   conv,
		input:  in,
		width:  80,
		height: 24,
	}
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, conv Conversation) error {
	_, err := tea.NewProgram(NewChatModel(ctx, conv), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			return m.cancel(), nil
		case tea.KeyEnter:
			return m.submit()
		}

	case turnMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.busy = false
		switch {
		case errors.Is(msg.err, session.ErrSuperseded):
		case msg.err != nil:
			m.lines = append(m.lines, RenderError(msg.err))
		default:
			m.lines = append(m.lines, strings.TrimRight(RenderMessages(msg.msgs), "\n"))
			m.choices.Observe(msg.msgs)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ChatModel) cancel() ChatModel {
	if !m.busy {
		return m
	}
	m.conv.Cancel()
	m.seq++
	m.busy = false
	m.lines = append(m.lines, RenderNotice("(cancelled, any result will be kept in history)"))
	return m
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}
	if line == "/quit" || line == "/exit" {
		return m, tea.Quit
	}

	m.lines = append(m.lines, RenderUser(line))
	m.seq++
	m.busy = true

	ctx, conv, seq := m.ctx, m.conv, m.seq
	if sel, ok := m.choices.Pick(line); ok {
		return m, func() tea.Msg {
			msgs, err := conv.Select(ctx, sel)
			return turnMsg{seq: seq, msgs: msgs, err: err}
		}
	}
	return m, func() tea.Msg {
		msgs, err := conv.Send(ctx, line)
		return turnMsg{seq: seq, msgs: msgs, err: err}
	}
}

func (m ChatModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("deskhand"))
	b.WriteString("\n\n")

	transcript := strings.Split(strings.Join(m.lines, "\n"), "\n")
	if room := m.height - 6; room > 0 && len(transcript) > room {
		transcript = transcript[len(transcript)-room:]
	}
	if len(m.lines) > 0 {
		b.WriteString(strings.Join(transcript, "\n"))
		b.WriteString("\n\n")
	}

	if m.busy {
		b.WriteString(RenderNotice("thinking... (esc to cancel)"))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(RenderNotice("enter: send • number: pick an option • esc: cancel • ctrl+c: quit"))
	return b.String()
}
