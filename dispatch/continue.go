// ABOUTME: Selection continuation for ambiguous contact and document searches
// ABOUTME: Turns a UI choice into a system prompt that replays the original request with the chosen candidate
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harperreed/deskhand/cards"
	"github.com/harperreed/deskhand/metrics"
	"github.com/harperreed/deskhand/tools"
)

// Selection is a UI pick from a choice card.
type Selection struct {
	// Kind is the choice card the option came from.
	Kind           cards.Kind
	Option         cards.Option
	OriginalPrompt string
}

// Call converts a selection into its pseudo-tool call.
func (s Selection) Call() ToolCall {
	name := tools.SelectContact
	if s.Kind == cards.DocumentChoice {
		name = tools.SelectDocument
	}
	args := map[string]any{
		"option_id":       s.Option.ID,
		"original_prompt": s.OriginalPrompt,
	}
	for k, v := range s.Option.Fields {
		if v != "" {
			args[k] = v
		}
	}
	return ToolCall{Name: name, Args: args}
}

// Continue dispatches a selection. The returned message carries the follow-up prompt.
func (d *Dispatcher) Continue(ctx context.Context, sel Selection, turn Turn) ResultMessage {
	return d.Dispatch(ctx, sel.Call(), turn)
}

var selectionFields = map[string][]string{
	tools.SelectContact:  {"name", "email", "phone"},
	tools.SelectDocument: {"name", "link"},
}

func (d *Dispatcher) continueSelection(log zerolog.Logger, call ToolCall, decl tools.Declaration, start time.Time) ResultMessage {
	if err := d.tools.Validate(call.Name, call.Args); err != nil {
		return d.fail(log, call.Name, start, err)
	}
	args := tools.Args(call.Args)

	noun := "contact"
	if call.Name == tools.SelectDocument {
		noun = "document"
	}

	var resolved []string
	for _, field := range selectionFields[call.Name] {
		if v := args.String(field); v != "" {
			resolved = append(resolved, fmt.Sprintf("%s: %s", field, v))
		}
	}
	resolved = append(resolved, "id: "+args.String("option_id"))

	label := args.String("name")
	if label == "" {
		label = args.String("option_id")
	}

	prompt := fmt.Sprintf(
		"The user selected the %s %q (%s). Use exactly this %s and continue with their original request: %q",
		noun, label, strings.Join(resolved, ", "), noun, args.String("original_prompt"),
	)

	metrics.ObserveToolCall(call.Name, metrics.OutcomeOK, d.now().Sub(start))
	log.Info().Str("capability", string(decl.Capability)).Msg("selection continued")

	return ResultMessage{
		Sender:           SenderSystem,
		Text:             fmt.Sprintf("Selected %s.", label),
		FunctionCallName: call.Name,
		FollowUpPrompt:   prompt,
	}
}
