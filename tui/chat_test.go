// ABOUTME: Tests for the chat screen model and choice tracking
// ABOUTME: Drives Update directly with key messages and a fake conversation
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/deskhand/cards"
	"github.com/harperreed/deskhand/dispatch"
)

type fakeConversation struct {
	sent      []string
	selected  []dispatch.Selection
	cancelled int
	reply     []dispatch.ResultMessage
	err       error
}

func (f *fakeConversation) Send(ctx context.Context, input string) ([]dispatch.ResultMessage, error) {
	f.sent = append(f.sent, input)
	return f.reply, f.err
}

func (f *fakeConversation) Select(ctx context.Context, sel dispatch.Selection) ([]dispatch.ResultMessage, error) {
	f.selected = append(f.selected, sel)
	return f.reply, f.err
}

func (f *fakeConversation) Cancel() { f.cancelled++ }

func contactChoice() []dispatch.ResultMessage {
	return []dispatch.ResultMessage{{
		Sender: dispatch.SenderAssistant,
		Card: &cards.Card{
			Type:           cards.ContactChoice,
			Title:          "Which Ivan?",
			OriginalPrompt: "email ivan",
			Options: []cards.Option{
				{ID: "people/1", Label: "Ivan Petrov"},
				{ID: "people/2", Label: "Ivan Ivanov"},
			},
		},
	}}
}

func typeAndEnter(t *testing.T, m ChatModel, text string) (ChatModel, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(ChatModel), cmd
}

func TestChatSendsAndRendersReply(t *testing.T) {
	conv := &fakeConversation{reply: []dispatch.ResultMessage{{Sender: dispatch.SenderAssistant, Text: "You have 2 events today"}}}
	m := NewChatModel(context.Background(), conv)

	m, cmd := typeAndEnter(t, m, "what's on today?")
	if cmd == nil {
		t.Fatal("expected a turn command")
	}
	if !m.busy {
		t.Error("model should be busy while the turn runs")
	}
	if !strings.Contains(m.View(), "thinking") {
		t.Error("view should show progress while busy")
	}

	next, _ := m.Update(cmd())
	m = next.(ChatModel)

	if len(conv.sent) != 1 || conv.sent[0] != "what's on today?" {
		t.Fatalf("unexpected sends: %v", conv.sent)
	}
	if m.busy {
		t.Error("model should be idle after the turn")
	}
	if !strings.Contains(m.View(), "You have 2 events today") {
		t.Errorf("reply missing from view:\n%s", m.View())
	}
}

func TestChatIgnoresEnterWhileBusy(t *testing.T) {
	conv := &fakeConversation{}
	m := NewChatModel(context.Background(), conv)

	m, _ = typeAndEnter(t, m, "first")
	m, cmd := typeAndEnter(t, m, "second")
	if cmd != nil {
		t.Error("no turn should start while one is running")
	}
}

func TestChatNumberSelectsFromChoiceCard(t *testing.T) {
	conv := &fakeConversation{reply: contactChoice()}
	m := NewChatModel(context.Background(), conv)

	m, cmd := typeAndEnter(t, m, "email ivan")
	next, _ := m.Update(cmd())
	m = next.(ChatModel)

	conv.reply = []dispatch.ResultMessage{{Sender: dispatch.SenderAssistant, Text: "Drafted"}}
	m, cmd = typeAndEnter(t, m, "2")
	_, _ = m.Update(cmd())

	if len(conv.selected) != 1 {
		t.Fatalf("expected one selection, got %d", len(conv.selected))
	}
	if conv.selected[0].Option.ID != "people/2" || conv.selected[0].OriginalPrompt != "email ivan" {
		t.Errorf("unexpected selection: %+v", conv.selected[0])
	}
	if len(conv.sent) != 1 {
		t.Errorf("number should not be sent as text, sends: %v", conv.sent)
	}
}

func TestChatEscCancelsAndDropsLateResult(t *testing.T) {
	conv := &fakeConversation{reply: []dispatch.ResultMessage{{Sender: dispatch.SenderAssistant, Text: "late answer"}}}
	m := NewChatModel(context.Background(), conv)

	m, cmd := typeAndEnter(t, m, "create an event")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(ChatModel)

	if conv.cancelled != 1 {
		t.Errorf("expected Cancel to be called once, got %d", conv.cancelled)
	}
	if m.busy {
		t.Error("model should accept input after cancel")
	}

	next, _ = m.Update(cmd())
	m = next.(ChatModel)
	if strings.Contains(m.View(), "late answer") {
		t.Error("result of a cancelled turn should not be shown")
	}
	if !strings.Contains(m.View(), "cancelled") {
		t.Error("view should note the cancellation")
	}
}

func TestChatShowsErrors(t *testing.T) {
	conv := &fakeConversation{err: errors.New("GEMINI_API_KEY is not set")}
	m := NewChatModel(context.Background(), conv)

	m, cmd := typeAndEnter(t, m, "hi")
	next, _ := m.Update(cmd())
	m = next.(ChatModel)

	if !strings.Contains(m.View(), "GEMINI_API_KEY is not set") {
		t.Errorf("error missing from view:\n%s", m.View())
	}
}

func TestChatQuitCommand(t *testing.T) {
	m := NewChatModel(context.Background(), &fakeConversation{})

	_, cmd := typeAndEnter(t, m, "/quit")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestChooserPicksFromLastChoiceCard(t *testing.T) {
	var c Chooser
	if _, ok := c.Pick("1"); ok {
		t.Fatal("pick without a card should fail")
	}

	c.Observe(contactChoice())

	if _, ok := c.Pick("3"); ok {
		t.Error("out of range pick should fail")
	}
	if _, ok := c.Pick("ivan"); ok {
		t.Error("non-numeric pick should fail")
	}

	sel, ok := c.Pick("2")
	if !ok {
		t.Fatal("expected pick to succeed")
	}
	if sel.Option.ID != "people/2" || sel.Kind != cards.ContactChoice || sel.OriginalPrompt != "email ivan" {
		t.Errorf("unexpected selection: %+v", sel)
	}
	if _, ok := c.Pick("1"); ok {
		t.Error("a card can only be picked from once")
	}

	c.Observe(contactChoice())
	c.Observe([]dispatch.ResultMessage{{Card: &cards.Card{Type: cards.Standard}}})
	if _, ok := c.Pick("1"); ok {
		t.Error("a later non-choice card should clear the pending choice")
	}
}
