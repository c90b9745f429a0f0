// ABOUTME: Tool-call dispatcher resolving providers, validating arguments and building result messages
// ABOUTME: Never returns an error; every failure becomes a system message so the conversation continues
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harperreed/deskhand/cards"
	"github.com/harperreed/deskhand/metrics"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
	"github.com/harperreed/deskhand/tools"
)

// Dispatcher executes tool calls. It is safe for concurrent use by many sessions.
type Dispatcher struct {
	tools    *tools.Registry
	commands map[string]Command
	policy   ConfirmationPolicy
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPolicy sets the confirmation policy.
func WithPolicy(p ConfirmationPolicy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithCommands replaces the command table.
func WithCommands(cmds map[string]Command) Option {
	return func(d *Dispatcher) { d.commands = cmds }
}

// New creates a dispatcher over registry with the default command table.
func New(registry *tools.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tools:    registry,
		commands: DefaultCommands(),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tools returns the registry the dispatcher validates against.
func (d *Dispatcher) Tools() *tools.Registry { return d.tools }

// Policy returns the confirmation policy.
func (d *Dispatcher) Policy() ConfirmationPolicy { return d.policy }

// CoverageError lists mismatches between the registry and the command table.
type CoverageError struct {
	MissingHandlers []string
	MissingTools    []string
}

func (e *CoverageError) Error() string {
	var parts []string
	if len(e.MissingHandlers) > 0 {
		parts = append(parts, "tools without handlers: "+strings.Join(e.MissingHandlers, ", "))
	}
	if len(e.MissingTools) > 0 {
		parts = append(parts, "handlers without tools: "+strings.Join(e.MissingTools, ", "))
	}
	return strings.Join(parts, "; ")
}

// Verify checks that every visible tool has a handler and every handler has a tool.
func (d *Dispatcher) Verify() error {
	cerr := &CoverageError{}
	for _, decl := range d.tools.Visible() {
		if _, ok := d.commands[decl.Name]; !ok {
			cerr.MissingHandlers = append(cerr.MissingHandlers, decl.Name)
		}
	}
	for name := range d.commands {
		if decl, ok := d.tools.Lookup(name); !ok || decl.Hidden {
			cerr.MissingTools = append(cerr.MissingTools, name)
		}
	}
	if len(cerr.MissingHandlers) == 0 && len(cerr.MissingTools) == 0 {
		return nil
	}
	sort.Strings(cerr.MissingHandlers)
	sort.Strings(cerr.MissingTools)
	return cerr
}

// resolve picks the provider a declaration routes to.
func resolve(decl tools.Declaration, turn Turn) (provider.Provider, error) {
	switch decl.Route {
	case tools.RouteWrite:
		return turn.Map.ResolveWrite(turn.Registry, decl.Capability)
	case tools.RouteIdentity:
		p, err := turn.Map.Resolve(turn.Registry, models.CapabilityIdentity)
		if err != nil {
			return nil, &provider.ConfigurationError{Capability: decl.Capability, Reason: fmt.Sprintf("requires the identity provider (%v)", err)}
		}
		return p, nil
	default:
		return turn.Map.Resolve(turn.Registry, decl.Capability)
	}
}

// Dispatch executes call and renders its outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall, turn Turn) ResultMessage {
	start := d.now()
	log := d.log.With().Str("tool", call.Name).Str("user_id", turn.UserID.String()).Logger()

	decl, ok := d.tools.Lookup(call.Name)
	if !ok {
		return d.fail(log, call.Name, start, &tools.InvalidArgumentsError{Tool: call.Name, Reason: "no such tool", Err: tools.ErrUnknownTool})
	}
	if decl.Hidden {
		return d.continueSelection(log, call, decl, start)
	}

	cmd, ok := d.commands[call.Name]
	if !ok {
		return d.fail(log, call.Name, start, &provider.ConfigurationError{Capability: decl.Capability, Reason: "tool has no handler"})
	}

	p, err := resolve(decl, turn)
	if err != nil {
		return d.fail(log, call.Name, start, err)
	}

	if err := d.tools.Validate(call.Name, call.Args); err != nil {
		return d.fail(log, call.Name, start, err)
	}
	args := tools.Args(call.Args)

	if decl.Destructive && d.policy == ConfirmExplicit {
		if msg, held := d.holdForConfirmation(call, cmd, turn); held {
			metrics.ObserveToolCall(call.Name, metrics.OutcomeNeedsConfirm, d.now().Sub(start))
			log.Info().Msg("destructive call awaiting confirmation")
			return msg
		}
		stripped := make(tools.Args, len(args))
		for k, v := range args {
			if k != TokenArg {
				stripped[k] = v
			}
		}
		args = stripped
	}

	result, err := cmd.Run(ctx, p, args, turn)
	if err != nil {
		var cfgErr *provider.ConfigurationError
		var argErr *tools.InvalidArgumentsError
		if !errors.As(err, &cfgErr) && !errors.As(err, &argErr) {
			err = provider.Classify(p.ID(), cmd.Op, err)
		}
		return d.fail(log, call.Name, start, err)
	}

	out := cards.Build(call.Name, result, cards.Context{
		OriginalPrompt: turn.OriginalPrompt,
		Args:           args,
		Location:       turn.Location,
	})

	elapsed := d.now().Sub(start)
	metrics.ObserveToolCall(call.Name, metrics.OutcomeOK, elapsed)
	log.Info().Str("provider", p.ID()).Dur("elapsed", elapsed).Msg("tool call complete")

	return ResultMessage{
		Sender:            SenderAssistant,
		Text:              out.Text,
		Card:              out.Card,
		FunctionCallName:  call.Name,
		ContextualActions: out.ContextualActions,
	}
}

func (d *Dispatcher) holdForConfirmation(call ToolCall, cmd Command, turn Turn) (ResultMessage, bool) {
	if turn.Confirmations == nil {
		return ResultMessage{
			Sender:           SenderSystem,
			Text:             "This action needs confirmation, but this conversation cannot hold one. Nothing was changed.",
			FunctionCallName: call.Name,
		}, true
	}

	args := tools.Args(call.Args)
	if token := args.String(TokenArg); token != "" && turn.Confirmations.Redeem(token, call.Name, call.Args) {
		return ResultMessage{}, false
	}

	summary := fmt.Sprintf("Run %s?", call.Name)
	if cmd.Describe != nil {
		summary = cmd.Describe(args)
	}
	token := turn.Confirmations.Issue(call.Name, call.Args)
	return ResultMessage{
		Sender:           SenderAssistant,
		Text:             summary + " Confirm to continue.",
		Card:             cards.NewConfirmation(call.Name, summary, token),
		FunctionCallName: call.Name,
	}, true
}

// fail converts an error into a system message.
func (d *Dispatcher) fail(log zerolog.Logger, tool string, start time.Time, err error) ResultMessage {
	msg := ResultMessage{Sender: SenderSystem, FunctionCallName: tool}
	outcome := metrics.OutcomeProvider

	var cfgErr *provider.ConfigurationError
	var argErr *tools.InvalidArgumentsError
	var provErr *provider.ProviderError
	switch {
	case errors.As(err, &cfgErr):
		outcome = metrics.OutcomeConfig
		msg.Text = fmt.Sprintf("I can't do that yet: %s. %s", cfgErr.Error(), cfgErr.Remediation())
		log.Warn().Err(err).Msg("configuration error")
	case errors.As(err, &argErr):
		outcome = metrics.OutcomeInvalidArgs
		msg.Text = fmt.Sprintf("I could not understand the request (%s).", argErr.Reason)
		log.Warn().Err(err).Msg("invalid tool arguments")
	case errors.As(err, &provErr) && provErr.AuthExpired:
		outcome = metrics.OutcomeAuthExpired
		msg.Text = fmt.Sprintf("Your %s sign-in has expired. Please reconnect and try again.", provErr.ProviderID)
		msg.Card = cards.NewReauthenticate(provErr.ProviderID)
		log.Warn().Err(err).Msg("provider authorization expired")
	case errors.As(err, &provErr):
		msg.Text = "Something went wrong: " + provErr.Error()
		log.Error().Err(err).Msg("provider error")
	default:
		msg.Text = "Something went wrong: " + err.Error()
		log.Error().Err(err).Msg("tool call failed")
	}

	metrics.ObserveToolCall(tool, outcome, d.now().Sub(start))
	return msg
}
