// ABOUTME: Tool registry holding declarations and their compiled argument validators
// ABOUTME: Validates model-issued arguments before any provider is contacted
package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/genai"

	"github.com/harperreed/deskhand/models"
)

// InvalidArgumentsError means a tool call did not match its declared schema.
type InvalidArgumentsError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }

// ErrUnknownTool is wrapped by InvalidArgumentsError for undeclared names.
var ErrUnknownTool = errors.New("unknown tool")

// Registry is an immutable set of declarations.
type Registry struct {
	decls    []Declaration
	index    map[string]int
	compiled map[string]*jsonschema.Schema
}

// NewRegistry compiles a registry. Names must be unique and every schema must compile.
func NewRegistry(decls ...Declaration) (*Registry, error) {
	r := &Registry{
		index:    make(map[string]int, len(decls)),
		compiled: make(map[string]*jsonschema.Schema, len(decls)),
	}
	for _, d := range decls {
		if d.Name == "" {
			return nil, fmt.Errorf("tool declaration without a name")
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", d.Name)
		}
		if d.Parameters == nil {
			d.Parameters = Object(nil)
		}

		raw, err := json.Marshal(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema for %s: %w", d.Name, err)
		}
		schema, err := jsonschema.CompileString(d.Name+".schema.json", string(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", d.Name, err)
		}

		r.index[d.Name] = len(r.decls)
		r.decls = append(r.decls, d)
		r.compiled[d.Name] = schema
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error.
func MustNewRegistry(decls ...Declaration) *Registry {
	r, err := NewRegistry(decls...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns a registry holding the full catalog.
func Default() *Registry {
	return MustNewRegistry(Catalog()...)
}

// Lookup returns the declaration for name.
func (r *Registry) Lookup(name string) (Declaration, bool) {
	i, ok := r.index[name]
	if !ok {
		return Declaration{}, false
	}
	return r.decls[i], true
}

// all returns every declaration in catalog order, hidden ones included.
func (r *Registry) all() []Declaration {
	out := make([]Declaration, len(r.decls))
	copy(out, r.decls)
	return out
}

// Visible returns the declarations offered to the model.
func (r *Registry) Visible() []Declaration {
	var out []Declaration
	for _, d := range r.decls {
		if !d.Hidden {
			out = append(out, d)
		}
	}
	return out
}

// names returns every declared name in catalog order.
func (r *Registry) names() []string {
	out := make([]string, len(r.decls))
	for i, d := range r.decls {
		out[i] = d.Name
	}
	return out
}

// ForCapabilities returns the tools serving any of caps, hidden ones included.
func (r *Registry) ForCapabilities(caps []models.Capability) *Registry {
	usable := make(map[models.Capability]bool, len(caps))
	for _, c := range caps {
		usable[c] = true
	}
	var names []string
	for _, d := range r.decls {
		if usable[d.Capability] {
			names = append(names, d.Name)
		}
	}
	return r.Subset(names...)
}

// Subset returns a registry restricted to names. Unknown names are ignored.
func (r *Registry) Subset(names ...string) *Registry {
	out := &Registry{
		index:    make(map[string]int, len(names)),
		compiled: make(map[string]*jsonschema.Schema, len(names)),
	}
	for _, name := range names {
		i, ok := r.index[name]
		if !ok {
			continue
		}
		if _, dup := out.index[name]; dup {
			continue
		}
		out.index[name] = len(out.decls)
		out.decls = append(out.decls, r.decls[i])
		out.compiled[name] = r.compiled[name]
	}
	return out
}

// Validate checks args against the tool's schema.
func (r *Registry) Validate(name string, args map[string]any) error {
	schema, ok := r.compiled[name]
	if !ok {
		return &InvalidArgumentsError{Tool: name, Reason: "no such tool", Err: ErrUnknownTool}
	}
	if args == nil {
		args = map[string]any{}
	}

	// Normalize to the shapes encoding/json produces
	payload, err := json.Marshal(args)
	if err != nil {
		return &InvalidArgumentsError{Tool: name, Reason: "arguments are not JSON-encodable", Err: err}
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return &InvalidArgumentsError{Tool: name, Reason: "arguments are not a JSON object", Err: err}
	}

	if err := schema.Validate(decoded); err != nil {
		return &InvalidArgumentsError{Tool: name, Reason: validationReason(err), Err: err}
	}
	return nil
}

func validationReason(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	// Report the innermost cause
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return ve.InstanceLocation + ": " + ve.Message
}

// ToGenAI converts the visible declarations to a Gemini tool set.
func (r *Registry) ToGenAI() []*genai.Tool {
	visible := r.Visible()
	if len(visible) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(visible))
	for _, d := range visible {
		fd := &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}
		// Gemini rejects empty object schemas
		if len(d.Parameters.Properties) > 0 {
			fd.Parameters = d.Parameters.GenAISchema()
		}
		decls = append(decls, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
