// ABOUTME: MCP prompt handlers for reusable assistant workflows over cached data
// ABOUTME: Builds daily briefing and contact summary prompts from the local cache
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/models"
)

type PromptHandlers struct {
	backend Backend
	userID  uuid.UUID
	now     func() time.Time
}

func NewPromptHandlers(backend Backend, userID uuid.UUID) *PromptHandlers {
	return &PromptHandlers{backend: backend, userID: userID, now: time.Now}
}

// Prompts lists the prompt templates.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "daily-briefing",
			Description: "Summarize today's calendar, open tasks and recent mail",
		},
		{
			Name:        "contact-summary",
			Description: "Summarize what is known about a contact",
			Arguments: []*mcp.PromptArgument{
				{Name: "query", Description: "Name or email of the contact", Required: true},
			},
		},
	}
}

// Register adds every prompt to server.
func (h *PromptHandlers) Register(server *mcp.Server) {
	for _, p := range h.Prompts() {
		server.AddPrompt(p, h.GetPrompt)
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "daily-briefing":
		return h.dailyBriefing(ctx)
	case "contact-summary":
		return h.contactSummary(ctx, request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}

func (h *PromptHandlers) dailyBriefing(ctx context.Context) (*mcp.GetPromptResult, error) {
	store := h.backend.Store()
	now := h.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	events, err := store.ListEvents(ctx, h.userID, models.EventQuery{TimeMin: &start, TimeMax: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	tasks, err := store.ListTasks(ctx, h.userID, models.TaskQuery{MaxResults: 20})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	emails, err := store.ListEmails(ctx, h.userID, models.MailQuery{MaxResults: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please give me a short briefing for %s.\n", start.Format("Monday, January 2"))

	b.WriteString("\nCalendar:\n")
	if len(events) == 0 {
		b.WriteString("- nothing scheduled\n")
	}
	for _, ev := range events {
		when := ev.Start.In(now.Location()).Format("15:04")
		if ev.AllDay {
			when = "all day"
		}
		fmt.Fprintf(&b, "- %s %s\n", when, ev.Summary)
	}

	b.WriteString("\nOpen tasks:\n")
	if len(tasks) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range tasks {
		line := "- " + t.Title
		if t.Due != nil {
			line += " (due " + t.Due.Format("Jan 2") + ")"
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\nRecent mail:\n")
	if len(emails) == 0 {
		b.WriteString("- none\n")
	}
	for _, m := range emails {
		fmt.Fprintf(&b, "- %s: %s\n", m.From, m.Subject)
	}

	b.WriteString("\nHighlight conflicts, anything overdue, and mail that needs a reply.")
	return userPrompt("Daily briefing", b.String()), nil
}

func (h *PromptHandlers) contactSummary(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	store := h.backend.Store()
	contacts, err := store.FindContacts(ctx, h.userID, query, db.MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("no cached contact matches %q", query)
	}
	contact := contacts[0]

	var b strings.Builder
	b.WriteString("Please summarize this contact:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", contact.Name)
	if contact.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", contact.Email)
	}
	if contact.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", contact.Phone)
	}
	if contact.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", contact.Company)
	}
	if contact.JobTitle != "" {
		fmt.Fprintf(&b, "Title: %s\n", contact.JobTitle)
	}
	if contact.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", contact.Notes)
	}
	if len(contacts) > 1 {
		fmt.Fprintf(&b, "\n%d other contacts also match %q.\n", len(contacts)-1, query)
	}

	if contact.Email != "" {
		emails, err := store.ListEmails(ctx, h.userID, models.MailQuery{Query: contact.Email, MaxResults: 5})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch emails: %w", err)
		}
		if len(emails) > 0 {
			b.WriteString("\nRecent mail:\n")
			for _, m := range emails {
				fmt.Fprintf(&b, "- %s %s\n", m.ReceivedAt.Format("2006-01-02"), m.Subject)
			}
		}
	}

	b.WriteString("\nSuggest a sensible next step with this person.")
	return userPrompt("Summary for contact: "+contact.Name, b.String()), nil
}
