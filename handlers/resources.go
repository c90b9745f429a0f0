// ABOUTME: MCP resource handlers exposing cache contents, sync status and provider bindings
// ABOUTME: Read-only JSON views addressed by deskhand:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/sync"
)

const scheme = "deskhand://"

type ResourceHandlers struct {
	backend Backend
	userID  uuid.UUID
}

func NewResourceHandlers(backend Backend, userID uuid.UUID) *ResourceHandlers {
	return &ResourceHandlers{backend: backend, userID: userID}
}

// Resources lists the resources this handler serves.
func (h *ResourceHandlers) Resources() []*mcp.Resource {
	out := []*mcp.Resource{
		{URI: scheme + "capabilities", Name: "capabilities", Description: "Provider bound to each capability", MIMEType: "application/json"},
		{URI: scheme + "sync-status", Name: "sync-status", Description: "Last sync time and error per capability", MIMEType: "application/json"},
	}
	for _, c := range sync.Synced() {
		out = append(out, &mcp.Resource{
			URI:         scheme + "cache/" + string(c),
			Name:        "cache-" + string(c),
			Description: fmt.Sprintf("Cached %s rows", c),
			MIMEType:    "application/json",
		})
	}
	return out
}

// Register adds every resource to server.
func (h *ResourceHandlers) Register(server *mcp.Server) {
	for _, r := range h.Resources() {
		server.AddResource(r, h.ReadResource)
	}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return h.read(ctx, request.Params.URI)
}

func (h *ResourceHandlers) read(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, scheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", scheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, scheme), "/")
	switch parts[0] {
	case "capabilities":
		return h.readCapabilities(ctx, uri)
	case "sync-status":
		return h.readSyncStatus(ctx, uri)
	case "cache":
		if len(parts) != 2 {
			return nil, fmt.Errorf("cache resource needs a capability: %s", uri)
		}
		return h.readCache(ctx, uri, parts[1])
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{URI: uri, MIMEType: "application/json", Text: string(data)},
	}}, nil
}

type binding struct {
	Capability    models.Capability `json:"capability"`
	Provider      string            `json:"provider"`
	Authenticated bool              `json:"authenticated"`
}

func (h *ResourceHandlers) readCapabilities(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	m, err := h.backend.CapabilityMap(ctx, h.userID)
	if err != nil {
		return nil, err
	}
	authed := make(map[models.Capability]bool)
	for _, c := range m.Authenticated(ctx, h.backend.Registry(h.userID)) {
		authed[c] = true
	}

	out := make([]binding, 0, len(models.AllCapabilities))
	for _, c := range models.AllCapabilities {
		out = append(out, binding{Capability: c, Provider: m[c], Authenticated: authed[c]})
	}
	return jsonResult(uri, out)
}

func (h *ResourceHandlers) readSyncStatus(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	statuses, err := h.backend.Store().ListSyncStatus(ctx, h.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sync status: %w", err)
	}
	if statuses == nil {
		statuses = []models.SyncStatus{}
	}
	return jsonResult(uri, statuses)
}

func (h *ResourceHandlers) readCache(ctx context.Context, uri, name string) (*mcp.ReadResourceResult, error) {
	c, err := models.ParseCapability(name)
	if err != nil {
		return nil, err
	}
	if _, ok := sync.StrategyFor(c); !ok {
		return nil, fmt.Errorf("%s is not cached", c)
	}
	table, err := db.TableFor(c)
	if err != nil {
		return nil, err
	}
	rows, err := h.backend.Store().Snapshot(ctx, table, h.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cached %s: %w", c, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return jsonResult(uri, rows)
}
