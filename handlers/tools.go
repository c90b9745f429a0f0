// ABOUTME: MCP tool handlers exposing the tool registry through the dispatcher
// ABOUTME: Every registered tool runs the same routing, validation and card rendering as chat
package handlers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/dispatch"
	"github.com/harperreed/deskhand/provider"
)

// Backend is what the MCP surface needs from the application.
type Backend interface {
	Turn(ctx context.Context, userID uuid.UUID, prompt string) (dispatch.Turn, error)
	Dispatcher() *dispatch.Dispatcher
	Store() *db.Store
	CapabilityMap(ctx context.Context, userID uuid.UUID) (provider.CapabilityMap, error)
	Registry(userID uuid.UUID) *provider.Registry
}

type ToolHandlers struct {
	backend Backend
	userID  uuid.UUID
}

func NewToolHandlers(backend Backend, userID uuid.UUID) *ToolHandlers {
	return &ToolHandlers{backend: backend, userID: userID}
}

// Register adds every visible registry tool to server.
func (h *ToolHandlers) Register(server *mcp.Server) {
	for _, decl := range h.backend.Dispatcher().Tools().Visible() {
		description := decl.Description
		if decl.Destructive {
			description += " Destructive: confirm with the user before calling."
		}
		mcp.AddTool(server, &mcp.Tool{
			Name:        decl.Name,
			Description: description,
			InputSchema: decl.Parameters.MCPSchema(),
		}, h.handler(decl.Name))
	}
}

func (h *ToolHandlers) handler(name string) mcp.ToolHandlerFor[map[string]any, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		return h.Call(ctx, name, args)
	}
}

// Call dispatches one tool call and renders the result message for MCP.
func (h *ToolHandlers) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, any, error) {
	if args == nil {
		args = map[string]any{}
	}

	turn, err := h.backend.Turn(ctx, h.userID, "")
	if err != nil {
		return nil, nil, err
	}

	msg := h.backend.Dispatcher().Dispatch(ctx, dispatch.ToolCall{Name: name, Args: args}, turn)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: messageText(msg)}},
		IsError: isFailure(msg),
	}, msg, nil
}

// isFailure reports whether msg is an error conversion rather than a result.
func isFailure(msg dispatch.ResultMessage) bool {
	return msg.Sender == dispatch.SenderSystem && msg.FollowUpPrompt == ""
}

func messageText(msg dispatch.ResultMessage) string {
	var parts []string
	if msg.Text != "" {
		parts = append(parts, msg.Text)
	}
	if card := msg.Card.Text(); card != "" {
		parts = append(parts, card)
	}
	if msg.FollowUpPrompt != "" {
		parts = append(parts, msg.FollowUpPrompt)
	}
	return strings.Join(parts, "\n\n")
}
