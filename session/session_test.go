// ABOUTME: Tests for the conversation session using a scripted model and fake providers
// ABOUTME: Covers tool gating, bounded history, selection follow-ups and stale results after cancel
package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/deskhand/cards"
	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/dispatch"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
	"github.com/harperreed/deskhand/provider/providertest"
	"github.com/harperreed/deskhand/replica"
	"github.com/harperreed/deskhand/tools"
)

type scriptedModel struct {
	mu        sync.Mutex
	responses []ModelResponse
	err       error
	requests  []ModelRequest
}

func (m *scriptedModel) Generate(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return ModelResponse{}, m.err
	}
	if len(m.responses) == 0 {
		return ModelResponse{Text: "ok"}, nil
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

func (m *scriptedModel) last() ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func call(name string, args map[string]any) ModelResponse {
	return ModelResponse{Call: &dispatch.ToolCall{Name: name, Args: args}}
}

type fixture struct {
	google *providertest.Fake
	cache  *providertest.Fake
	model  *scriptedModel
}

func newSession(t *testing.T, cfg Config, extra ...provider.Provider) (*Session, *fixture) {
	t.Helper()
	f := &fixture{
		google: providertest.New(provider.GoogleID),
		cache:  providertest.New(provider.ReplicaID),
		model:  &scriptedModel{},
	}
	reg := provider.NewRegistry(f.google, f.cache)
	for _, p := range extra {
		reg.Register(p)
	}
	d := dispatch.New(tools.Default())
	require.NoError(t, d.Verify())
	cfg.Location = time.UTC
	return New(uuid.New(), f.model, d, reg, provider.DefaultCapabilityMap(), cfg), f
}

func TestTextReplyIsRecorded(t *testing.T) {
	s, f := newSession(t, Config{})
	f.model.responses = []ModelResponse{{Text: "Hello there"}}

	msgs, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, dispatch.SenderAssistant, msgs[0].Sender)
	assert.Equal(t, "Hello there", msgs[0].Text)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, RoleUser, h[0].Role)
	assert.Equal(t, RoleAssistant, h[1].Role)
}

func TestEmptyInputIsRejected(t *testing.T) {
	s, f := newSession(t, Config{})
	_, err := s.Send(context.Background(), "   ")
	require.Error(t, err)
	assert.Empty(t, f.model.requests)
}

func TestToolsAttachedOnlyWhenAuthenticated(t *testing.T) {
	store, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	userID := uuid.New()
	google := providertest.New(provider.GoogleID)
	reg := provider.NewRegistry(google, replica.New(store, userID))
	model := &scriptedModel{}
	s := New(userID, model, dispatch.New(tools.Default()), reg, provider.DefaultCapabilityMap(), Config{Location: time.UTC})

	_, err = s.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.NotNil(t, model.last().Tools)
	assert.Len(t, model.last().Tools.Visible(), len(tools.Default().Visible()))

	google.Authed = false
	_, err = s.Send(context.Background(), "hi again")
	require.NoError(t, err)
	assert.Nil(t, model.last().Tools)
}

func TestOnlyUsableCapabilitiesGetTools(t *testing.T) {
	s, f := newSession(t, Config{})
	f.google.Authed = false

	_, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	offered := f.model.last().Tools
	require.NotNil(t, offered)

	var names []string
	for _, d := range offered.Visible() {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{tools.FindContacts, tools.CreateNote, tools.FindNotes}, names)
}

func TestToolCallIsDispatched(t *testing.T) {
	s, f := newSession(t, Config{})
	f.google.Tasks = []models.Task{{ID: "t1", Title: "Ship it", Status: "needsAction"}}
	f.model.responses = []ModelResponse{call(tools.GetTasks, map[string]any{})}

	msgs, err := s.Send(context.Background(), "what's on my list?")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, tools.GetTasks, msgs[0].FunctionCallName)
	assert.Len(t, f.google.CallsTo("GetTasks"), 1)

	h := s.History()
	require.Len(t, h, 3)
	assert.NotNil(t, h[1].Call)
	require.NotNil(t, h[2].Result)
	assert.False(t, h[2].Stale)
}

func TestHistoryIsBounded(t *testing.T) {
	s, _ := newSession(t, Config{MaxHistory: 4})
	for i := 0; i < 5; i++ {
		_, err := s.Send(context.Background(), "hello")
		require.NoError(t, err)
	}
	h := s.History()
	assert.LessOrEqual(t, len(h), 4)
	assert.Equal(t, RoleUser, h[0].Role)
}

func TestTrimKeepsCallsWithResults(t *testing.T) {
	history := []Entry{
		{Role: RoleUser, Text: "a"},
		{Role: RoleAssistant, Call: &dispatch.ToolCall{Name: tools.GetTasks}},
		{Role: RoleTool, Result: &dispatch.ResultMessage{}},
		{Role: RoleUser, Text: "b"},
		{Role: RoleAssistant, Text: "c"},
	}
	out := trim(history, 4)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Text)
}

func TestSelectionRunsFollowUpCycle(t *testing.T) {
	s, f := newSession(t, Config{})
	f.cache.Contacts = []models.Contact{
		{ID: "people/1", Name: "Ivan Petrov", Email: "ivan.p@example.com"},
		{ID: "people/2", Name: "Ivan Ivanov", Email: "ivan.i@example.com"},
	}
	f.model.responses = []ModelResponse{
		call(tools.FindContacts, map[string]any{"query": "Ivan"}),
		{Text: "Drafting the email to Ivan Ivanov."},
	}

	msgs, err := s.Send(context.Background(), "email Ivan the agenda")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	card := msgs[0].Card
	require.NotNil(t, card)
	require.Equal(t, cards.ContactChoice, card.Type)
	assert.Equal(t, "email Ivan the agenda", card.OriginalPrompt)

	msgs, err = s.Select(context.Background(), dispatch.Selection{Kind: card.Type, Option: card.Options[1], OriginalPrompt: card.OriginalPrompt})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, dispatch.SenderSystem, msgs[0].Sender)
	assert.Equal(t, "Drafting the email to Ivan Ivanov.", msgs[1].Text)

	var prompt string
	for _, e := range f.model.last().History {
		if e.Role == RoleSystem {
			prompt = e.Text
		}
	}
	assert.Contains(t, prompt, "ivan.i@example.com")
	assert.Contains(t, prompt, "email Ivan the agenda")
}

func TestModelErrorIsReturned(t *testing.T) {
	s, f := newSession(t, Config{})
	f.model.err = errors.New("quota exhausted")
	_, err := s.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exhausted")
}

// blockingContacts holds FindContacts until released.
type blockingContacts struct {
	*providertest.Fake
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	ctxErr error
}

func (b *blockingContacts) FindContacts(ctx context.Context, query string) ([]models.Contact, error) {
	close(b.entered)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	b.mu.Lock()
	b.ctxErr = ctx.Err()
	b.mu.Unlock()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return []models.Contact{{ID: "people/9", Name: "Ana", Email: "ana@example.com"}}, nil
}

func newBlocking() *blockingContacts {
	return &blockingContacts{
		Fake:    providertest.New(provider.ReplicaID),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func TestCancelMarksLateResultStale(t *testing.T) {
	blocking := newBlocking()
	s, f := newSession(t, Config{}, blocking)
	f.model.responses = []ModelResponse{call(tools.FindContacts, map[string]any{"query": "Ana"})}

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		msgs []dispatch.ResultMessage
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		msgs, err := s.Send(ctx, "find Ana")
		done <- outcome{msgs, err}
	}()

	<-blocking.entered
	cancel()
	s.Cancel()
	close(blocking.release)

	out := <-done
	require.ErrorIs(t, out.err, ErrSuperseded)
	require.Len(t, out.msgs, 1)
	require.NotNil(t, out.msgs[0].Card)

	blocking.mu.Lock()
	assert.NoError(t, blocking.ctxErr, "tool call must not see caller cancellation")
	blocking.mu.Unlock()

	h := s.History()
	last := h[len(h)-1]
	assert.Equal(t, RoleTool, last.Role)
	assert.True(t, last.Stale)
}

func TestToolTimeoutBecomesErrorMessage(t *testing.T) {
	blocking := newBlocking()
	s, f := newSession(t, Config{ToolTimeout: 20 * time.Millisecond}, blocking)
	f.model.responses = []ModelResponse{call(tools.FindContacts, map[string]any{"query": "Ana"})}

	msgs, err := s.Send(context.Background(), "find Ana")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, dispatch.SenderSystem, msgs[0].Sender)
	assert.Contains(t, msgs[0].Text, "Something went wrong")
}

func TestSystemInstructionMentionsConfirmation(t *testing.T) {
	s, _ := newSession(t, Config{})
	assert.Contains(t, s.systemInstruction(), "wait for the user to confirm")
	assert.NotContains(t, s.systemInstruction(), "confirmation_token")
}

// confirmingModel deletes a task, then repeats the call with whatever
// confirmation token the previous tool result carried.
type confirmingModel struct {
	turns int
}

func (m *confirmingModel) Generate(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	m.turns++
	if m.turns == 1 {
		return call(tools.DeleteTask, map[string]any{"task_id": "t1"}), nil
	}
	var token string
	for _, c := range toContents(req.History) {
		for _, part := range c.Parts {
			if part.FunctionResponse == nil {
				continue
			}
			if card, ok := part.FunctionResponse.Response["card"].(map[string]any); ok {
				if tok, ok := card[dispatch.TokenArg].(string); ok {
					token = tok
				}
			}
		}
	}
	if token == "" {
		return ModelResponse{Text: "I could not find a confirmation token."}, nil
	}
	return call(tools.DeleteTask, map[string]any{"task_id": "t1", dispatch.TokenArg: token}), nil
}

func newExplicitSession(t *testing.T, conf *dispatch.Confirmations) (*Session, *providertest.Fake, *dispatch.Dispatcher) {
	t.Helper()
	google := providertest.New(provider.GoogleID)
	reg := provider.NewRegistry(google, providertest.New(provider.ReplicaID))
	d := dispatch.New(tools.Default(), dispatch.WithPolicy(dispatch.ConfirmExplicit))
	require.NoError(t, d.Verify())
	s := New(uuid.New(), &confirmingModel{}, d, reg, provider.DefaultCapabilityMap(), Config{Location: time.UTC, Confirmations: conf})
	return s, google, d
}

func TestExplicitConfirmationCompletesInChat(t *testing.T) {
	s, google, _ := newExplicitSession(t, nil)

	msgs, err := s.Send(context.Background(), "delete my ship-it task")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Card)
	assert.Equal(t, cards.Confirmation, msgs[0].Card.Type)
	assert.Empty(t, google.CallsTo("DeleteTask"))

	msgs, err = s.Send(context.Background(), "yes, delete it")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, dispatch.SenderAssistant, msgs[0].Sender)
	assert.Len(t, google.CallsTo("DeleteTask"), 1)
}

func TestChatConfirmationRedeemableElsewhere(t *testing.T) {
	shared := dispatch.NewConfirmations()
	s, google, d := newExplicitSession(t, shared)

	msgs, err := s.Send(context.Background(), "delete my ship-it task")
	require.NoError(t, err)
	require.NotNil(t, msgs[0].Card)
	token := msgs[0].Card.Token
	require.NotEmpty(t, token)

	turn := dispatch.Turn{
		UserID:        s.UserID(),
		Map:           provider.DefaultCapabilityMap(),
		Registry:      s.registry,
		Location:      time.UTC,
		Confirmations: shared,
	}
	msg := d.Dispatch(context.Background(), dispatch.ToolCall{Name: tools.DeleteTask, Args: map[string]any{"task_id": "t1", dispatch.TokenArg: token}}, turn)
	assert.Equal(t, dispatch.SenderAssistant, msg.Sender)
	assert.Len(t, google.CallsTo("DeleteTask"), 1)
}
