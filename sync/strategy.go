// ABOUTME: Per-capability sync strategies and entity-to-row projection
// ABOUTME: Contacts, files and tasks reconcile fully; calendar and mail append incrementally
package sync

import (
	"context"
	"fmt"

	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
)

// Strategy selects how fetched items reconcile against the cache.
type Strategy int

const (
	// Full deletes cached rows missing from the fetch, then upserts.
	Full Strategy = iota
	// Incremental upserts fetched rows and never deletes.
	Incremental
)

func (s Strategy) String() string {
	if s == Full {
		return "full"
	}
	return "incremental"
}

// fetched is one pass worth of remote items already converted to rows.
type fetched struct {
	rows   []db.Row
	cursor string
}

type fetchFunc func(ctx context.Context, p provider.Provider, cursor string, e *Engine) (fetched, error)

type plan struct {
	capability models.Capability
	table      db.Table
	strategy   Strategy
	fetch      fetchFunc
}

// Notes are cache-native and never appear here.
var plans = map[models.Capability]plan{
	models.CapabilityContacts: {models.CapabilityContacts, db.ContactsTable, Full, fetchContacts},
	models.CapabilityFiles:    {models.CapabilityFiles, db.FilesTable, Full, fetchFiles},
	models.CapabilityTasks:    {models.CapabilityTasks, db.TasksTable, Full, fetchTasks},
	models.CapabilityCalendar: {models.CapabilityCalendar, db.EventsTable, Incremental, fetchEvents},
	models.CapabilityMail:     {models.CapabilityMail, db.EmailsTable, Incremental, fetchEmails},
}

// Synced lists the capabilities the engine reconciles, in display order.
func Synced() []models.Capability {
	var out []models.Capability
	for _, c := range models.AllCapabilities {
		if _, ok := plans[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// StrategyFor returns the reconciliation strategy declared for c.
func StrategyFor(c models.Capability) (Strategy, bool) {
	s, ok := plans[c]
	return s.strategy, ok
}

func fetchContacts(ctx context.Context, p provider.Provider, _ string, _ *Engine) (fetched, error) {
	lister, err := provider.As[provider.ContactLister](p, models.CapabilityContacts)
	if err != nil {
		return fetched{}, err
	}
	contacts, err := lister.ListAllContacts(ctx)
	if err != nil {
		return fetched{}, err
	}
	contacts = DedupeContacts(contacts)
	rows := make([]db.Row, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, contactRow(c))
	}
	return fetched{rows: rows}, nil
}

func fetchFiles(ctx context.Context, p provider.Provider, _ string, _ *Engine) (fetched, error) {
	lister, err := provider.As[provider.FileLister](p, models.CapabilityFiles)
	if err != nil {
		return fetched{}, err
	}
	docs, err := lister.ListAllFiles(ctx)
	if err != nil {
		return fetched{}, err
	}
	rows := make([]db.Row, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, documentRow(d))
	}
	return fetched{rows: rows}, nil
}

func fetchTasks(ctx context.Context, p provider.Provider, _ string, _ *Engine) (fetched, error) {
	lister, err := provider.As[provider.TaskLister](p, models.CapabilityTasks)
	if err != nil {
		return fetched{}, err
	}
	tasks, err := lister.ListAllTasks(ctx)
	if err != nil {
		return fetched{}, err
	}
	rows := make([]db.Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, taskRow(t))
	}
	return fetched{rows: rows}, nil
}

func fetchEvents(ctx context.Context, p provider.Provider, cursor string, _ *Engine) (fetched, error) {
	feed, err := provider.As[provider.EventFeed](p, models.CapabilityCalendar)
	if err != nil {
		return fetched{}, err
	}
	events, next, err := feed.ListChangedEvents(ctx, cursor)
	if err != nil {
		return fetched{}, err
	}
	rows := make([]db.Row, 0, len(events))
	for _, ev := range events {
		rows = append(rows, eventRow(ev))
	}
	return fetched{rows: rows, cursor: next}, nil
}

func fetchEmails(ctx context.Context, p provider.Provider, _ string, e *Engine) (fetched, error) {
	feed, err := provider.As[provider.MailFeed](p, models.CapabilityMail)
	if err != nil {
		return fetched{}, err
	}
	emails, err := feed.ListRecentEmails(ctx, e.config.MailWindow)
	if err != nil {
		return fetched{}, err
	}
	rows := make([]db.Row, 0, len(emails))
	for _, m := range emails {
		rows = append(rows, emailRow(m))
	}
	return fetched{rows: rows}, nil
}

func contactRow(c models.Contact) db.Row {
	return db.Row{SourceID: c.ID, Fields: map[string]any{
		"name":      c.Name,
		"email":     c.Email,
		"phone":     c.Phone,
		"company":   c.Company,
		"job_title": c.JobTitle,
		"notes":     c.Notes,
	}}
}

func documentRow(d models.Document) db.Row {
	return db.Row{SourceID: d.ID, Fields: map[string]any{
		"name":          d.Name,
		"mime_type":     d.MimeType,
		"web_view_link": d.WebViewLink,
		"owner":         d.Owner,
		"modified_time": db.TimeValue(d.ModifiedTime),
	}}
}

func taskRow(t models.Task) db.Row {
	return db.Row{SourceID: t.ID, Fields: map[string]any{
		"list_id":      t.ListID,
		"title":        t.Title,
		"notes":        t.Notes,
		"due":          db.TimeValue(t.Due),
		"status":       t.Status,
		"completed_at": db.TimeValue(t.Completed),
	}}
}

func eventRow(ev models.Event) db.Row {
	// Cancelled entries from a change feed carry no details
	if ev.Status == "cancelled" {
		return db.Row{SourceID: ev.ID, Fields: map[string]any{"status": ev.Status}}
	}
	return db.Row{SourceID: ev.ID, Fields: map[string]any{
		"summary":     ev.Summary,
		"description": ev.Description,
		"location":    ev.Location,
		"start_time":  db.TimeValue(&ev.Start),
		"end_time":    db.TimeValue(&ev.End),
		"all_day":     db.BoolValue(ev.AllDay),
		"attendees":   db.ListValue(ev.Attendees),
		"status":      ev.Status,
		"html_link":   ev.HTMLLink,
	}}
}

func emailRow(m models.Email) db.Row {
	return db.Row{SourceID: m.ID, Fields: map[string]any{
		"thread_id":   m.ThreadID,
		"sender":      m.From,
		"recipients":  db.ListValue(m.To),
		"subject":     m.Subject,
		"snippet":     m.Snippet,
		"body":        m.Body,
		"received_at": db.TimeValue(&m.ReceivedAt),
		"labels":      db.ListValue(m.Labels),
	}}
}

// project drops fields the user excluded. Fields without a setting are kept.
func project(rows []db.Row, settings map[string]bool) []db.Row {
	if len(settings) == 0 {
		return rows
	}
	out := make([]db.Row, 0, len(rows))
	for _, r := range rows {
		fields := make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			if included, ok := settings[k]; ok && !included {
				continue
			}
			fields[k] = v
		}
		out = append(out, db.Row{SourceID: r.SourceID, Fields: fields})
	}
	return out
}

func validateRows(table db.Table, rows []db.Row) error {
	for _, r := range rows {
		if r.SourceID == "" {
			return fmt.Errorf("%s item without a source id", table.Capability)
		}
	}
	return nil
}
