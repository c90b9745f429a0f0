// ABOUTME: Response card builder turning provider results into text and typed cards
// ABOUTME: Total over every tool; empty results produce a deterministic not-found text
package cards

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/tools"
)

// Kind discriminates card variants.
type Kind string

const (
	Standard                 Kind = "standard"
	ContactChoice            Kind = "contact_choice"
	DocumentChoice           Kind = "document_choice"
	DirectAction             Kind = "direct_action_card"
	DocumentCreationProposal Kind = "document_creation_proposal"
	Confirmation             Kind = "confirmation"
	SystemAction             Kind = "system_action"
)

// Action kinds.
const (
	ActionEmail          = "email"
	ActionCall           = "call"
	ActionOpen           = "open"
	ActionCreateDocument = "create_document"
	ActionConfirm        = "confirm"
	ActionCancel         = "cancel"
	ActionReauthenticate = "reauthenticate"
	ActionSync           = "sync"
	ActionSelect         = "select"
)

// Action is a button on a card. Tool and Args describe the call it issues, if any.
type Action struct {
	Kind  string         `json:"kind"`
	Label string         `json:"label"`
	Value string         `json:"value,omitempty"`
	Tool  string         `json:"tool,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
}

// Option is one selectable candidate on a choice card.
type Option struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Card is the structured part of an assistant message.
type Card struct {
	Type           Kind     `json:"type"`
	Title          string   `json:"title,omitempty"`
	Details        []string `json:"details,omitempty"`
	Actions        []Action `json:"actions,omitempty"`
	Options        []Option `json:"options,omitempty"`
	OriginalPrompt string   `json:"original_prompt,omitempty"`
	Token          string   `json:"token,omitempty"`
}

// Output is what a tool result renders to.
type Output struct {
	Text              string
	Card              *Card
	ContextualActions []Action
}

// Context carries turn information the builder needs.
type Context struct {
	OriginalPrompt string
	Args           tools.Args
	Location       *time.Location
}

func (c Context) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Build renders the result of a successful tool call.
func Build(tool string, result any, c Context) Output {
	switch r := result.(type) {
	case []models.Event:
		return events(r, c)
	case *models.Event:
		if r == nil {
			return completed(tool, c)
		}
		return event(tool, r, c)
	case []models.Task:
		return taskList(r, c)
	case *models.Task:
		if r == nil {
			return completed(tool, c)
		}
		return task(tool, r, c)
	case []models.Contact:
		return contacts(r, c)
	case []models.Document:
		return documents(r, c)
	case *models.Document:
		if r == nil {
			return completed(tool, c)
		}
		return createdDocument(r)
	case *models.Note:
		if r == nil {
			return completed(tool, c)
		}
		return createdNote(r)
	case []models.Note:
		return notes(r, c)
	case []models.Email:
		return emails(r, c)
	case *models.Profile:
		return profile(r)
	case nil:
		return completed(tool, c)
	}
	return Output{Text: "Done."}
}

func quoted(c Context) string {
	if q := c.Args.String("query"); q != "" {
		return fmt.Sprintf(" matching %q", q)
	}
	return ""
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func formatSpan(start, end time.Time, allDay bool, loc *time.Location) string {
	start, end = start.In(loc), end.In(loc)
	if allDay {
		return start.Format("Mon Jan 2") + " (all day)"
	}
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s–%s", start.Format("Mon Jan 2 15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s – %s", start.Format("Mon Jan 2 15:04"), end.Format("Mon Jan 2 15:04"))
}

func events(list []models.Event, c Context) Output {
	if len(list) == 0 {
		return Output{Text: "No events found" + quoted(c) + "."}
	}
	card := &Card{Type: Standard, Title: "Events"}
	for _, ev := range list {
		line := formatSpan(ev.Start, ev.End, ev.AllDay, c.loc()) + " · " + orUntitled(ev.Summary)
		if ev.Location != "" {
			line += " @ " + ev.Location
		}
		card.Details = append(card.Details, line)
	}
	return Output{Text: fmt.Sprintf("Found %s%s.", plural(len(list), "event", "events"), quoted(c)), Card: card}
}

func event(tool string, ev *models.Event, c Context) Output {
	verb := "Created"
	if tool == tools.UpdateCalendarEvent {
		verb = "Updated"
	}
	card := &Card{Type: Standard, Title: orUntitled(ev.Summary)}
	card.Details = append(card.Details, formatSpan(ev.Start, ev.End, ev.AllDay, c.loc()))
	if ev.Location != "" {
		card.Details = append(card.Details, "Location: "+ev.Location)
	}
	if len(ev.Attendees) > 0 {
		card.Details = append(card.Details, "Guests: "+strings.Join(ev.Attendees, ", "))
	}
	if ev.HTMLLink != "" {
		card.Actions = append(card.Actions, Action{Kind: ActionOpen, Label: "Open in calendar", Value: ev.HTMLLink})
	}
	return Output{Text: fmt.Sprintf("%s event %q.", verb, orUntitled(ev.Summary)), Card: card}
}

func taskLine(t models.Task, loc *time.Location) string {
	mark := "☐"
	if t.Status == models.TaskStatusCompleted {
		mark = "☑"
	}
	line := mark + " " + orUntitled(t.Title)
	if t.Due != nil {
		line += " (due " + t.Due.In(loc).Format("Mon Jan 2") + ")"
	}
	return line
}

func taskList(list []models.Task, c Context) Output {
	if len(list) == 0 {
		return Output{Text: "No tasks found."}
	}
	card := &Card{Type: Standard, Title: "Tasks"}
	for _, t := range list {
		card.Details = append(card.Details, taskLine(t, c.loc()))
	}
	return Output{Text: fmt.Sprintf("You have %s.", plural(len(list), "task", "tasks")), Card: card}
}

func task(tool string, t *models.Task, c Context) Output {
	verb := "Created"
	if tool == tools.UpdateTask {
		verb = "Updated"
		if t.Status == models.TaskStatusCompleted {
			verb = "Completed"
		}
	}
	card := &Card{Type: Standard, Title: orUntitled(t.Title), Details: []string{taskLine(*t, c.loc())}}
	if t.Notes != "" {
		card.Details = append(card.Details, t.Notes)
	}
	return Output{Text: fmt.Sprintf("%s task %q.", verb, orUntitled(t.Title)), Card: card}
}

func contactActions(ct models.Contact) []Action {
	var actions []Action
	if ct.Email != "" {
		actions = append(actions, Action{Kind: ActionEmail, Label: "Email " + ct.Name, Value: "mailto:" + ct.Email})
	}
	if ct.Phone != "" {
		actions = append(actions, Action{Kind: ActionCall, Label: "Call " + ct.Name, Value: "tel:" + ct.Phone})
	}
	return actions
}

func contactDetail(ct models.Contact) string {
	var parts []string
	for _, p := range []string{ct.Email, ct.Phone, ct.Company} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

func contacts(list []models.Contact, c Context) Output {
	switch len(list) {
	case 0:
		return Output{
			Text:              "No contacts found" + quoted(c) + ".",
			ContextualActions: []Action{{Kind: ActionSync, Label: "Sync contacts", Value: string(models.CapabilityContacts)}},
		}
	case 1:
		ct := list[0]
		card := &Card{Type: DirectAction, Title: ct.Name, Actions: contactActions(ct)}
		if d := contactDetail(ct); d != "" {
			card.Details = []string{d}
		}
		if ct.JobTitle != "" {
			card.Details = append(card.Details, ct.JobTitle)
		}
		return Output{Text: fmt.Sprintf("Found %s.", ct.Name), Card: card}
	}

	card := &Card{Type: ContactChoice, Title: "Which contact?", OriginalPrompt: c.OriginalPrompt}
	for _, ct := range list {
		card.Options = append(card.Options, Option{
			ID:     ct.ID,
			Label:  ct.Name,
			Detail: contactDetail(ct),
			Fields: map[string]string{"name": ct.Name, "email": ct.Email, "phone": ct.Phone},
		})
	}
	return Output{Text: fmt.Sprintf("I found %s%s. Which one did you mean?", plural(len(list), "contact", "contacts"), quoted(c)), Card: card}
}

func documents(list []models.Document, c Context) Output {
	switch len(list) {
	case 0:
		q := c.Args.String("query")
		if q == "" {
			return Output{Text: "No documents found."}
		}
		content := c.OriginalPrompt
		return Output{
			Text: fmt.Sprintf("No documents found matching %q. Want me to create one?", q),
			Card: &Card{
				Type:           DocumentCreationProposal,
				Title:          q,
				OriginalPrompt: c.OriginalPrompt,
				Actions: []Action{
					{Kind: ActionCreateDocument, Label: "Create with content", Tool: tools.CreateDocument, Args: map[string]any{"title": q, "content": content}},
					{Kind: ActionCreateDocument, Label: "Create empty document", Tool: tools.CreateDocument, Args: map[string]any{"title": q}},
				},
			},
		}
	case 1:
		d := list[0]
		card := &Card{Type: DirectAction, Title: d.Name}
		if d.ModifiedTime != nil {
			card.Details = []string{"Modified " + d.ModifiedTime.In(c.loc()).Format("Jan 2, 2006")}
		}
		if d.WebViewLink != "" {
			card.Actions = []Action{{Kind: ActionOpen, Label: "Open", Value: d.WebViewLink}}
		}
		return Output{Text: fmt.Sprintf("Found %q.", d.Name), Card: card}
	}

	card := &Card{Type: DocumentChoice, Title: "Which document?", OriginalPrompt: c.OriginalPrompt}
	for _, d := range list {
		opt := Option{ID: d.ID, Label: d.Name, Fields: map[string]string{"name": d.Name, "link": d.WebViewLink}}
		if d.ModifiedTime != nil {
			opt.Detail = "Modified " + d.ModifiedTime.In(c.loc()).Format("Jan 2, 2006")
		}
		card.Options = append(card.Options, opt)
	}
	return Output{Text: fmt.Sprintf("I found %s%s. Which one did you mean?", plural(len(list), "document", "documents"), quoted(c)), Card: card}
}

func createdDocument(d *models.Document) Output {
	card := &Card{Type: Standard, Title: d.Name}
	if d.WebViewLink != "" {
		card.Actions = []Action{{Kind: ActionOpen, Label: "Open document", Value: d.WebViewLink}}
	}
	return Output{Text: fmt.Sprintf("Created document %q.", d.Name), Card: card}
}

func createdNote(n *models.Note) Output {
	return Output{
		Text: fmt.Sprintf("Saved note %q.", n.Title),
		Card: &Card{Type: Standard, Title: n.Title, Details: []string{n.Content}},
	}
}

func notes(list []models.Note, c Context) Output {
	if len(list) == 0 {
		return Output{Text: "No notes found" + quoted(c) + "."}
	}
	card := &Card{Type: Standard, Title: "Notes"}
	for _, n := range list {
		card.Details = append(card.Details, n.Title+": "+truncate(n.Content, 80))
	}
	return Output{Text: fmt.Sprintf("Found %s%s.", plural(len(list), "note", "notes"), quoted(c)), Card: card}
}

func emails(list []models.Email, c Context) Output {
	if len(list) == 0 {
		return Output{Text: "No emails found" + quoted(c) + "."}
	}
	card := &Card{Type: Standard, Title: "Recent email"}
	for _, m := range list {
		subject := m.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		card.Details = append(card.Details, fmt.Sprintf("%s · %s · %s", m.ReceivedAt.In(c.loc()).Format("Jan 2 15:04"), m.From, subject))
	}
	return Output{Text: fmt.Sprintf("Found %s%s.", plural(len(list), "email", "emails"), quoted(c)), Card: card}
}

func profile(p *models.Profile) Output {
	if p == nil {
		return Output{Text: "No profile is available."}
	}
	return Output{
		Text: fmt.Sprintf("You are signed in as %s (%s).", p.Name, p.Email),
		Card: &Card{Type: Standard, Title: p.Name, Details: []string{p.Email}},
	}
}

// completed renders tools whose provider returns nothing on success.
func completed(tool string, c Context) Output {
	switch tool {
	case tools.DeleteCalendarEvent:
		return Output{Text: "Deleted the event."}
	case tools.DeleteTask:
		return Output{Text: "Deleted the task."}
	case tools.DeleteEmail:
		return Output{Text: "Moved the email to the trash."}
	case tools.SendEmail:
		to := c.Args.Strings("to")
		if len(to) == 0 {
			return Output{Text: "Email sent."}
		}
		return Output{Text: "Email sent to " + strings.Join(to, ", ") + "."}
	case tools.GetUserProfile:
		return profile(nil)
	}
	return Output{Text: "Done."}
}

// NewConfirmation builds a card asking the user to approve a destructive call.
func NewConfirmation(tool, summary, token string) *Card {
	return &Card{
		Type:    Confirmation,
		Title:   "Please confirm",
		Details: []string{summary},
		Token:   token,
		Actions: []Action{
			{Kind: ActionConfirm, Label: "Confirm", Tool: tool, Value: token},
			{Kind: ActionCancel, Label: "Cancel"},
		},
	}
}

// NewReauthenticate builds the prompt shown when a provider's credentials expired.
func NewReauthenticate(providerID string) *Card {
	return &Card{
		Type:    SystemAction,
		Title:   "Sign in again",
		Details: []string{fmt.Sprintf("Your %s session has expired.", providerID)},
		Actions: []Action{{Kind: ActionReauthenticate, Label: "Reconnect " + providerID, Value: providerID}},
	}
}

func orUntitled(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(untitled)"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
