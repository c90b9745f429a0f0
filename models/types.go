// ABOUTME: Data models for assistant capabilities and cached backend entities
// ABOUTME: Defines Capability, Event, Task, Contact, Document, Email, Note, Profile and SyncStatus
package models

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Capability is a functional domain a provider may implement.
type Capability string

const (
	CapabilityCalendar Capability = "calendar"
	CapabilityTasks    Capability = "tasks"
	CapabilityContacts Capability = "contacts"
	CapabilityFiles    Capability = "files"
	CapabilityNotes    Capability = "notes"
	CapabilityMail     Capability = "mail"
	CapabilityIdentity Capability = "identity"
)

// AllCapabilities lists every capability in display order.
var AllCapabilities = []Capability{
	CapabilityCalendar,
	CapabilityTasks,
	CapabilityContacts,
	CapabilityFiles,
	CapabilityNotes,
	CapabilityMail,
	CapabilityIdentity,
}

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, error) {
	for _, c := range AllCapabilities {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability: %q", s)
}

type Event struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	AllDay      bool       `json:"all_day,omitempty"`
	Attendees   []string   `json:"attendees,omitempty"`
	Status      string     `json:"status,omitempty"`
	HTMLLink    string     `json:"html_link,omitempty"`
	Updated     *time.Time `json:"updated,omitempty"`
}

// EventQuery bounds a calendar read.
type EventQuery struct {
	TimeMin    *time.Time `json:"time_min,omitempty"`
	TimeMax    *time.Time `json:"time_max,omitempty"`
	Query      string     `json:"query,omitempty"`
	MaxResults int        `json:"max_results,omitempty"`
}

type EventDetails struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}

// EventUpdate carries only the fields the caller wants changed.
type EventUpdate struct {
	ID          string     `json:"id"`
	Summary     *string    `json:"summary,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

// Task statuses as the primary backend reports them.
const (
	TaskStatusNeedsAction = "needsAction"
	TaskStatusCompleted   = "completed"
)

type Task struct {
	ID        string     `json:"id"`
	ListID    string     `json:"list_id,omitempty"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Due       *time.Time `json:"due,omitempty"`
	Status    string     `json:"status"`
	Completed *time.Time `json:"completed,omitempty"`
}

type TaskQuery struct {
	ShowCompleted bool `json:"show_completed,omitempty"`
	MaxResults    int  `json:"max_results,omitempty"`
}

type TaskDetails struct {
	Title string     `json:"title"`
	Notes string     `json:"notes,omitempty"`
	Due   *time.Time `json:"due,omitempty"`
}

type TaskUpdate struct {
	ID     string     `json:"id"`
	Title  *string    `json:"title,omitempty"`
	Notes  *string    `json:"notes,omitempty"`
	Due    *time.Time `json:"due,omitempty"`
	Status *string    `json:"status,omitempty"`
}

type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type Document struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	MimeType     string     `json:"mime_type,omitempty"`
	WebViewLink  string     `json:"web_view_link,omitempty"`
	Owner        string     `json:"owner,omitempty"`
	ModifiedTime *time.Time `json:"modified_time,omitempty"`
}

type DocDetails struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

type Email struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	From       string    `json:"from"`
	To         []string  `json:"to,omitempty"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet,omitempty"`
	Body       string    `json:"body,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Labels     []string  `json:"labels,omitempty"`
}

type MailQuery struct {
	Query      string `json:"query,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type OutgoingMail struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Note is cache-native: it has a local ID and no remote source ID.
type Note struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NoteDetails struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Profile is the signed-in account of the identity provider.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// SyncStatus records the outcome of the latest sync attempt for one capability.
// A nil LastSync means no attempt has succeeded yet.
type SyncStatus struct {
	UserID     uuid.UUID  `json:"user_id"`
	Capability Capability `json:"capability"`
	LastSync   *time.Time `json:"last_sync"`
	Error      *string    `json:"error"`
	Cursor     string     `json:"-"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// OK reports whether the most recent attempt succeeded.
func (s *SyncStatus) OK() bool {
	return s.Error == nil
}

// NewNoteID returns a lexically time-ordered note ID.
func NewNoteID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
