// ABOUTME: Gemini model client translating session history and tools into genai requests
// ABOUTME: Retries transient failures with exponential backoff; returns text or one function call
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"

	"github.com/harperreed/deskhand/dispatch"
)

const DefaultModel = "gemini-2.0-flash"

var _ ModelClient = (*Gemini)(nil)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint.
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries uint64
}

// Gemini is a ModelClient backed by google.golang.org/genai.
type Gemini struct {
	client     *genai.Client
	model      string
	maxRetries uint64
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, maxRetries: cfg.MaxRetries}, nil
}

// Generate sends the history and returns the model's next step.
func (g *Gemini) Generate(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	contents := toContents(req.History)
	if len(contents) == 0 {
		return ModelResponse{}, fmt.Errorf("no conversation to send")
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Tools != nil {
		config.Tools = req.Tools.ToGenAI()
	}

	var resp *genai.GenerateContentResponse
	op := func() error {
		var err error
		resp, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, g.maxRetries), ctx)); err != nil {
		return ModelResponse{}, fmt.Errorf("gemini generate failed: %w", err)
	}

	if calls := resp.FunctionCalls(); len(calls) > 0 {
		fc := calls[0]
		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}
		return ModelResponse{Call: &dispatch.ToolCall{Name: fc.Name, Args: args}}, nil
	}
	return ModelResponse{Text: resp.Text()}, nil
}

func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// toContents maps history onto Gemini roles. Tool results become function
// responses; system follow-ups are sent as user text.
func toContents(history []Entry) []*genai.Content {
	var out []*genai.Content
	for _, e := range history {
		switch {
		case e.Call != nil:
			out = append(out, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: e.Call.Name, Args: e.Call.Args}}},
			})
		case e.Result != nil:
			out = append(out, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{Name: e.Result.FunctionCallName, Response: resultPayload(e)}}},
			})
		case e.Text == "":
			continue
		case e.Role == RoleAssistant:
			out = append(out, genai.NewContentFromText(e.Text, genai.RoleModel))
		case e.Role == RoleSystem:
			out = append(out, genai.NewContentFromText("[system] "+e.Text, genai.RoleUser))
		default:
			out = append(out, genai.NewContentFromText(e.Text, genai.RoleUser))
		}
	}
	return out
}

// resultPayload is what the model sees of a tool result. Option ids and the
// confirmation token are included so the model can issue the follow-up call.
func resultPayload(e Entry) map[string]any {
	r := e.Result
	payload := map[string]any{"sender": string(r.Sender)}
	if r.Text != "" {
		payload["text"] = r.Text
	}
	if r.Card != nil {
		card := map[string]any{"type": string(r.Card.Type), "title": r.Card.Title}
		if len(r.Card.Details) > 0 {
			card["details"] = r.Card.Details
		}
		if len(r.Card.Options) > 0 {
			options := make([]map[string]any, 0, len(r.Card.Options))
			for _, o := range r.Card.Options {
				options = append(options, map[string]any{"id": o.ID, "label": o.Label})
			}
			card["options"] = options
		}
		if len(r.Card.Actions) > 0 {
			actions := make([]map[string]any, 0, len(r.Card.Actions))
			for _, a := range r.Card.Actions {
				action := map[string]any{"kind": a.Kind, "label": a.Label}
				if a.Value != "" {
					action["value"] = a.Value
				}
				if a.Tool != "" {
					action["tool"] = a.Tool
				}
				actions = append(actions, action)
			}
			card["actions"] = actions
		}
		if r.Card.Token != "" {
			card[dispatch.TokenArg] = r.Card.Token
		}
		payload["card"] = card
	}
	if e.Stale {
		payload["stale"] = true
	}
	return payload
}
