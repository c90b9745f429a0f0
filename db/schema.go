// ABOUTME: Cache schema definitions for SQLite and Postgres
// ABOUTME: One table per entity type, each unique on (user_id, source_id)
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/deskhand/models"
)

// Table describes a synced entity table and the columns a sync may write.
type Table struct {
	Name       string
	Capability models.Capability
	Columns    []string
}

// HasColumn reports whether col is a writable column of the table.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

var (
	EventsTable = Table{
		Name:       "calendar_events",
		Capability: models.CapabilityCalendar,
		Columns:    []string{"summary", "description", "location", "start_time", "end_time", "all_day", "attendees", "status", "html_link"},
	}
	TasksTable = Table{
		Name:       "tasks",
		Capability: models.CapabilityTasks,
		Columns:    []string{"list_id", "title", "notes", "due", "status", "completed_at"},
	}
	ContactsTable = Table{
		Name:       "contacts",
		Capability: models.CapabilityContacts,
		Columns:    []string{"name", "email", "phone", "company", "job_title", "notes"},
	}
	FilesTable = Table{
		Name:       "files",
		Capability: models.CapabilityFiles,
		Columns:    []string{"name", "mime_type", "web_view_link", "owner", "modified_time"},
	}
	EmailsTable = Table{
		Name:       "emails",
		Capability: models.CapabilityMail,
		Columns:    []string{"thread_id", "sender", "recipients", "subject", "snippet", "body", "received_at", "labels"},
	}
)

// TableFor returns the cache table backing a synced capability.
func TableFor(c models.Capability) (Table, error) {
	switch c {
	case models.CapabilityCalendar:
		return EventsTable, nil
	case models.CapabilityTasks:
		return TasksTable, nil
	case models.CapabilityContacts:
		return ContactsTable, nil
	case models.CapabilityFiles:
		return FilesTable, nil
	case models.CapabilityMail:
		return EmailsTable, nil
	}
	return Table{}, fmt.Errorf("no cache table for capability %q", c)
}

const entityTableTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id %[3]s,
	user_id TEXT NOT NULL,
	source_id TEXT NOT NULL,
%[2]s
	created_at %[4]s NOT NULL,
	updated_at %[4]s NOT NULL,
	UNIQUE (user_id, source_id)
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_user ON %[1]s(user_id);
`

const supportSchema = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at %[1]s NOT NULL,
	updated_at %[1]s NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);

CREATE TABLE IF NOT EXISTS sync_status (
	user_id TEXT NOT NULL,
	capability TEXT NOT NULL,
	last_sync %[1]s,
	error TEXT,
	sync_cursor TEXT,
	updated_at %[1]s NOT NULL,
	PRIMARY KEY (user_id, capability)
);

CREATE TABLE IF NOT EXISTS capability_bindings (
	user_id TEXT NOT NULL,
	capability TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	updated_at %[1]s NOT NULL,
	PRIMARY KEY (user_id, capability)
);

CREATE TABLE IF NOT EXISTS field_settings (
	user_id TEXT NOT NULL,
	capability TEXT NOT NULL,
	field TEXT NOT NULL,
	included BOOLEAN NOT NULL,
	PRIMARY KEY (user_id, capability, field)
);
`

// Schema renders the DDL for the store's dialect.
func (s *Store) Schema() string {
	idType, tsType := "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME"
	if s.dialect == Postgres {
		idType, tsType = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}

	var b strings.Builder
	for _, t := range []Table{EventsTable, TasksTable, ContactsTable, FilesTable, EmailsTable} {
		var cols strings.Builder
		for _, c := range t.Columns {
			fmt.Fprintf(&cols, "\t%s TEXT,\n", c)
		}
		fmt.Fprintf(&b, entityTableTemplate, t.Name, cols.String(), idType, tsType)
	}
	fmt.Fprintf(&b, supportSchema, tsType)
	return b.String()
}

// InitSchema creates all tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if s.dialect == Postgres {
		// Execute statements one at a time for the extended protocol
		for _, stmt := range strings.Split(s.Schema(), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx, s.Schema())
	return err
}
