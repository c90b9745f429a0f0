// ABOUTME: Tool parameter schemas and the declaration type shared with the model
// ABOUTME: Serializes to JSON Schema for validation and converts to Gemini and MCP schema types
package tools

import (
	"strings"

	mcpschema "github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/harperreed/deskhand/models"
)

// Schema is the subset of JSON Schema tool parameters use.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Object builds an object schema from properties and required names.
func Object(props map[string]*Schema, required ...string) *Schema {
	if props == nil {
		props = map[string]*Schema{}
	}
	return &Schema{Type: "object", Properties: props, Required: required}
}

func String(desc string) *Schema { return &Schema{Type: "string", Description: desc} }

func Integer(desc string) *Schema { return &Schema{Type: "integer", Description: desc} }

func Boolean(desc string) *Schema { return &Schema{Type: "boolean", Description: desc} }

func Enum(desc string, values ...string) *Schema {
	return &Schema{Type: "string", Description: desc, Enum: values}
}

func StringArray(desc string) *Schema {
	return &Schema{Type: "array", Description: desc, Items: &Schema{Type: "string"}}
}

// Route is how a tool picks its provider.
type Route int

const (
	// RouteRead resolves through the capability map.
	RouteRead Route = iota
	// RouteWrite resolves to the authoritative write provider.
	RouteWrite
	// RouteIdentity always targets the identity provider.
	RouteIdentity
)

func (r Route) String() string {
	switch r {
	case RouteWrite:
		return "write"
	case RouteIdentity:
		return "identity"
	default:
		return "read"
	}
}

// Declaration is one tool as presented to the model.
type Declaration struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  *Schema           `json:"parameters"`
	Capability  models.Capability `json:"-"`
	Route       Route             `json:"-"`
	Destructive bool              `json:"-"`
	// Hidden declarations are validated but never offered to the model.
	Hidden bool `json:"-"`
}

// GenAISchema converts s to Gemini's schema type.
func (s *Schema) GenAISchema() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       s.Items.GenAISchema(),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.GenAISchema()
		}
	}
	return out
}

// MCPSchema converts s to the schema type MCP tools carry.
func (s *Schema) MCPSchema() *mcpschema.Schema {
	if s == nil {
		return nil
	}
	out := &mcpschema.Schema{
		Type:        s.Type,
		Description: s.Description,
		Required:    s.Required,
		Items:       s.Items.MCPSchema(),
	}
	for _, v := range s.Enum {
		out.Enum = append(out.Enum, v)
	}
	if s.Type == "object" {
		out.Properties = make(map[string]*mcpschema.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.MCPSchema()
		}
	}
	return out
}
