// ABOUTME: Capability provider contract split into narrow per-capability interfaces
// ABOUTME: Backends implement the subset they support; sync feeds expose bulk reads
package provider

import (
	"context"

	"github.com/harperreed/deskhand/models"
)

// Well-known provider IDs.
const (
	GoogleID    = "google"
	ReplicaID   = "cache"
	CharmID     = "charm"
	MicrosoftID = "microsoft"
	AppleID     = "apple"
)

// Provider is a named backend implementing one or more capabilities.
type Provider interface {
	ID() string
	Capabilities() []models.Capability
}

// Authenticator is implemented by providers that hold remote credentials.
type Authenticator interface {
	Authenticate(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
}

type IdentityProvider interface {
	Provider
	Authenticator
	GetUserProfile(ctx context.Context) (*models.Profile, error)
}

// EventReader lists calendar events. Read-only backends such as the cache
// implement it without the write half of CalendarProvider.
type EventReader interface {
	GetCalendarEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error)
}

type TaskReader interface {
	GetTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error)
}

type DocumentFinder interface {
	FindDocuments(ctx context.Context, query string) ([]models.Document, error)
}

type MailReader interface {
	GetRecentEmails(ctx context.Context, q models.MailQuery) ([]models.Email, error)
}

type CalendarProvider interface {
	Provider
	EventReader
	CreateEvent(ctx context.Context, details models.EventDetails) (*models.Event, error)
	UpdateEvent(ctx context.Context, update models.EventUpdate) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type TaskProvider interface {
	Provider
	TaskReader
	CreateTask(ctx context.Context, details models.TaskDetails) (*models.Task, error)
	UpdateTask(ctx context.Context, update models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type ContactProvider interface {
	Provider
	FindContacts(ctx context.Context, query string) ([]models.Contact, error)
}

type FileProvider interface {
	Provider
	DocumentFinder
	CreateDoc(ctx context.Context, details models.DocDetails) (*models.Document, error)
}

type NoteProvider interface {
	Provider
	CreateNote(ctx context.Context, details models.NoteDetails) (*models.Note, error)
	FindNotes(ctx context.Context, query string) ([]models.Note, error)
}

type MailProvider interface {
	Provider
	MailReader
	SendMail(ctx context.Context, mail models.OutgoingMail) error
	DeleteEmail(ctx context.Context, id string) error
}

// ContactLister returns the complete contact set for full reconciliation.
type ContactLister interface {
	ListAllContacts(ctx context.Context) ([]models.Contact, error)
}

// FileLister returns the complete file set for full reconciliation.
type FileLister interface {
	ListAllFiles(ctx context.Context) ([]models.Document, error)
}

// TaskLister returns every task across all lists for full reconciliation.
type TaskLister interface {
	ListAllTasks(ctx context.Context) ([]models.Task, error)
}

// EventFeed returns events changed since cursor. An empty cursor means "recent window".
// The returned cursor is persisted and passed back on the next sync.
type EventFeed interface {
	ListChangedEvents(ctx context.Context, cursor string) ([]models.Event, string, error)
}

// MailFeed returns a bounded window of recent messages.
type MailFeed interface {
	ListRecentEmails(ctx context.Context, limit int) ([]models.Email, error)
}

// Implements reports whether p declares capability c.
func Implements(p Provider, c models.Capability) bool {
	for _, have := range p.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}
