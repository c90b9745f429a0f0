// ABOUTME: Conversation session owning bounded history and running model and tool cycles
// ABOUTME: Tool calls survive caller cancellation; results from a cancelled generation are kept but marked stale
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harperreed/deskhand/dispatch"
	"github.com/harperreed/deskhand/provider"
	"github.com/harperreed/deskhand/tools"
)

const (
	DefaultMaxHistory  = 20
	DefaultToolTimeout = 30 * time.Second
	// maxFollowUps bounds selection and continuation cycles within one input.
	maxFollowUps = 3
)

// ErrSuperseded is returned when the user cancelled while a tool call was running.
// The result is still recorded in history.
var ErrSuperseded = errors.New("conversation moved on before the tool call finished")

// Role tags a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Entry is one history item.
type Entry struct {
	Role   Role                    `json:"role"`
	Text   string                  `json:"text,omitempty"`
	Call   *dispatch.ToolCall      `json:"call,omitempty"`
	Result *dispatch.ResultMessage `json:"result,omitempty"`
	// Stale marks results that arrived after the user cancelled.
	Stale bool      `json:"stale,omitempty"`
	At    time.Time `json:"at"`
}

// ModelRequest is one model call.
type ModelRequest struct {
	System  string
	History []Entry
	// Tools is nil when no capability is usable.
	Tools *tools.Registry
}

// ModelResponse is either plain text or a single tool call.
type ModelResponse struct {
	Text string
	Call *dispatch.ToolCall
}

// ModelClient talks to the language model.
type ModelClient interface {
	Generate(ctx context.Context, req ModelRequest) (ModelResponse, error)
}

// Config tunes a session.
type Config struct {
	MaxHistory  int
	ToolTimeout time.Duration
	Location    *time.Location
	Logger      zerolog.Logger
	// Confirmations is shared with other surfaces serving the same user.
	// A private store is created when nil.
	Confirmations *dispatch.Confirmations
}

// Session is one user's conversation. Turns are strictly sequential.
type Session struct {
	userID     uuid.UUID
	model      ModelClient
	dispatcher *dispatch.Dispatcher
	registry   *provider.Registry
	capMap     provider.CapabilityMap
	cfg        Config
	log        zerolog.Logger
	now        func() time.Time

	turn          sync.Mutex
	mu            sync.Mutex
	history       []Entry
	generation    atomic.Uint64
	confirmations *dispatch.Confirmations
}

// New creates a session. The capability map is copied.
func New(userID uuid.UUID, model ModelClient, d *dispatch.Dispatcher, registry *provider.Registry, capMap provider.CapabilityMap, cfg Config) *Session {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Confirmations == nil {
		cfg.Confirmations = dispatch.NewConfirmations()
	}
	return &Session{
		userID:        userID,
		model:         model,
		dispatcher:    d,
		registry:      registry,
		capMap:        capMap.Clone(),
		cfg:           cfg,
		log:           cfg.Logger.With().Str("user_id", userID.String()).Logger(),
		now:           time.Now,
		confirmations: cfg.Confirmations,
	}
}

// UserID returns the session owner.
func (s *Session) UserID() uuid.UUID { return s.userID }

// History returns a copy of the current history.
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// Cancel abandons the in-flight turn from the user's point of view. A running
// tool call still completes and is recorded as stale.
func (s *Session) Cancel() {
	s.generation.Add(1)
}

func (s *Session) appendEntry(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.At.IsZero() {
		e.At = s.now()
	}
	s.history = append(s.history, e)
	s.history = trim(s.history, s.cfg.MaxHistory)
}

// trim keeps the newest max entries, starting at a user message so tool
// calls are never separated from their results.
func trim(history []Entry, max int) []Entry {
	if len(history) <= max {
		return history
	}
	cut := history[len(history)-max:]
	for i, e := range cut {
		if e.Role == RoleUser {
			return append([]Entry(nil), cut[i:]...)
		}
	}
	return append([]Entry(nil), cut...)
}

func (s *Session) systemInstruction() string {
	var b strings.Builder
	b.WriteString("You are deskhand, a concise assistant for the user's calendar, tasks, contacts, files, notes and email.\n")
	fmt.Fprintf(&b, "The current time is %s.\n", s.now().In(s.cfg.Location).Format("Monday, January 2, 2006 15:04 MST"))
	b.WriteString("Call at most one tool per reply. Look up ids with a search tool before updating or deleting anything.\n")
	b.WriteString("Before deleting an event, task or email, or sending an email, restate what will happen and wait for the user to confirm.\n")
	if s.dispatcher.Policy() == dispatch.ConfirmExplicit {
		b.WriteString("Destructive tools return a confirmation card first; repeat the call with its confirmation_token only after the user approves.\n")
	}
	return b.String()
}

func (s *Session) request(ctx context.Context) ModelRequest {
	req := ModelRequest{System: s.systemInstruction(), History: s.History()}
	if caps := s.capMap.Authenticated(ctx, s.registry); len(caps) > 0 {
		req.Tools = s.dispatcher.Tools().ForCapabilities(caps)
	}
	return req
}

func (s *Session) turnContext(prompt string) dispatch.Turn {
	return dispatch.Turn{
		UserID:         s.userID,
		Map:            s.capMap,
		Registry:       s.registry,
		OriginalPrompt: prompt,
		Location:       s.cfg.Location,
		Confirmations:  s.confirmations,
	}
}

// Send runs one user input through the model and, if it asks for one, a tool call.
func (s *Session) Send(ctx context.Context, input string) ([]dispatch.ResultMessage, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	s.appendEntry(Entry{Role: RoleUser, Text: input})
	return s.cycle(ctx, input, 0)
}

// Select continues a choice card with the user's pick.
func (s *Session) Select(ctx context.Context, sel dispatch.Selection) ([]dispatch.ResultMessage, error) {
	s.turn.Lock()
	defer s.turn.Unlock()

	call := sel.Call()
	s.appendEntry(Entry{Role: RoleUser, Text: "Selected " + sel.Option.Label})
	msg, err := s.runTool(ctx, call, sel.OriginalPrompt)
	out := []dispatch.ResultMessage{msg}
	if err != nil || msg.FollowUpPrompt == "" {
		return out, err
	}

	s.appendEntry(Entry{Role: RoleSystem, Text: msg.FollowUpPrompt})
	more, err := s.cycle(ctx, sel.OriginalPrompt, 1)
	return append(out, more...), err
}

// cycle asks the model for the next step and executes it.
func (s *Session) cycle(ctx context.Context, prompt string, depth int) ([]dispatch.ResultMessage, error) {
	resp, err := s.model.Generate(ctx, s.request(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get model response: %w", err)
	}

	if resp.Call == nil {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			text = "I don't have a response for that."
		}
		s.appendEntry(Entry{Role: RoleAssistant, Text: text})
		return []dispatch.ResultMessage{{Sender: dispatch.SenderAssistant, Text: text}}, nil
	}

	msg, err := s.runTool(ctx, *resp.Call, prompt)
	out := []dispatch.ResultMessage{msg}
	if err != nil || msg.FollowUpPrompt == "" || depth >= maxFollowUps {
		return out, err
	}

	s.appendEntry(Entry{Role: RoleSystem, Text: msg.FollowUpPrompt})
	more, err := s.cycle(ctx, prompt, depth+1)
	return append(out, more...), err
}

// runTool dispatches call on a context detached from ctx's cancellation.
func (s *Session) runTool(ctx context.Context, call dispatch.ToolCall, prompt string) (dispatch.ResultMessage, error) {
	gen := s.generation.Load()
	s.appendEntry(Entry{Role: RoleAssistant, Call: &call})

	toolCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ToolTimeout)
	defer cancel()

	msg := s.dispatcher.Dispatch(toolCtx, call, s.turnContext(prompt))

	stale := s.generation.Load() != gen
	s.appendEntry(Entry{Role: RoleTool, Result: &msg, Stale: stale})
	if stale {
		s.log.Info().Str("tool", call.Name).Msg("tool result arrived after cancel")
		return msg, ErrSuperseded
	}
	return msg, nil
}
