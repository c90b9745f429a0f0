// ABOUTME: MCP server assembly registering tools, resources and prompts for one user
// ABOUTME: Serves over stdio for desktop assistant integration
package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server exposing deskhand for userID.
func NewServer(backend Backend, userID uuid.UUID, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "deskhand",
		Version: version,
	}, nil)

	NewToolHandlers(backend, userID).Register(server)
	NewResourceHandlers(backend, userID).Register(server)
	NewPromptHandlers(backend, userID).Register(server)
	return server
}

// Serve runs the MCP server on stdio until ctx is done or the client disconnects.
func Serve(ctx context.Context, backend Backend, userID uuid.UUID, version string) error {
	return NewServer(backend, userID, version).Run(ctx, &mcp.StdioTransport{})
}
