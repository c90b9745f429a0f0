// ABOUTME: Cache-optimized read provider answering reads from the local cache store
// ABOUTME: Also the cache-native notes backend; never writes synced entity rows
package replica

import (
	"context"

	"github.com/google/uuid"

	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
)

var (
	_ provider.ContactProvider = (*Provider)(nil)
	_ provider.NoteProvider    = (*Provider)(nil)
	_ provider.EventReader     = (*Provider)(nil)
	_ provider.TaskReader      = (*Provider)(nil)
	_ provider.DocumentFinder  = (*Provider)(nil)
	_ provider.MailReader      = (*Provider)(nil)
)

// Provider serves one user's reads from the cache.
type Provider struct {
	store  *db.Store
	userID uuid.UUID
}

// New creates a cache provider for userID.
func New(store *db.Store, userID uuid.UUID) *Provider {
	return &Provider{store: store, userID: userID}
}

func (p *Provider) ID() string { return provider.ReplicaID }

func (p *Provider) Capabilities() []models.Capability {
	return []models.Capability{
		models.CapabilityCalendar,
		models.CapabilityTasks,
		models.CapabilityContacts,
		models.CapabilityFiles,
		models.CapabilityNotes,
		models.CapabilityMail,
	}
}

func (p *Provider) fail(op string, err error) error {
	return provider.Classify(provider.ReplicaID, op, err)
}

func (p *Provider) FindContacts(ctx context.Context, query string) ([]models.Contact, error) {
	contacts, err := p.store.FindContacts(ctx, p.userID, query, db.MaxSearchResults)
	if err != nil {
		return nil, p.fail("findContacts", err)
	}
	return contacts, nil
}

func (p *Provider) FindDocuments(ctx context.Context, query string) ([]models.Document, error) {
	docs, err := p.store.FindDocuments(ctx, p.userID, query, db.MaxSearchResults)
	if err != nil {
		return nil, p.fail("findDocuments", err)
	}
	return docs, nil
}

func (p *Provider) GetCalendarEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error) {
	events, err := p.store.ListEvents(ctx, p.userID, q)
	if err != nil {
		return nil, p.fail("getCalendarEvents", err)
	}
	return events, nil
}

func (p *Provider) GetTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error) {
	tasks, err := p.store.ListTasks(ctx, p.userID, q)
	if err != nil {
		return nil, p.fail("getTasks", err)
	}
	return tasks, nil
}

func (p *Provider) GetRecentEmails(ctx context.Context, q models.MailQuery) ([]models.Email, error) {
	emails, err := p.store.ListEmails(ctx, p.userID, q)
	if err != nil {
		return nil, p.fail("getRecentEmails", err)
	}
	return emails, nil
}

func (p *Provider) CreateNote(ctx context.Context, details models.NoteDetails) (*models.Note, error) {
	note, err := p.store.CreateNote(ctx, p.userID, details)
	if err != nil {
		return nil, p.fail("createNote", err)
	}
	return note, nil
}

func (p *Provider) FindNotes(ctx context.Context, query string) ([]models.Note, error) {
	notes, err := p.store.FindNotes(ctx, p.userID, query, db.MaxSearchResults)
	if err != nil {
		return nil, p.fail("findNotes", err)
	}
	return notes, nil
}
