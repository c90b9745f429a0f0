// ABOUTME: Tool call, turn context and result message types exchanged with the session
// ABOUTME: A Turn carries everything one dispatch needs so no state lives in package globals
package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/deskhand/cards"
	"github.com/harperreed/deskhand/provider"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// ToolCall is one model-issued (or UI-issued) function call.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ResultMessage is what a dispatch appends to the conversation.
type ResultMessage struct {
	Sender            Sender         `json:"sender"`
	Text              string         `json:"text,omitempty"`
	Card              *cards.Card    `json:"card,omitempty"`
	FunctionCallName  string         `json:"function_call_name,omitempty"`
	ContextualActions []cards.Action `json:"contextual_actions,omitempty"`

	// FollowUpPrompt, when set, is sent back to the model as a new cycle.
	FollowUpPrompt string `json:"-"`
}

// Turn is the per-call context. Map and Registry are read-only during the turn.
type Turn struct {
	UserID         uuid.UUID
	Map            provider.CapabilityMap
	Registry       *provider.Registry
	OriginalPrompt string
	Location       *time.Location

	// Confirmations holds pending tokens when explicit confirmation is on.
	Confirmations *Confirmations
}
