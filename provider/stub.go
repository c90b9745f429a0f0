// ABOUTME: Unimplemented provider variants for backends that are not wired yet
// ABOUTME: Every operation fails with a typed ErrNotSupported ProviderError
package provider

import (
	"context"

	"github.com/harperreed/deskhand/models"
)

// Unsupported is a placeholder backend that declares capabilities but
// implements none of them.
type Unsupported struct {
	id string
}

var (
	_ IdentityProvider = (*Unsupported)(nil)
	_ CalendarProvider = (*Unsupported)(nil)
	_ TaskProvider     = (*Unsupported)(nil)
	_ ContactProvider  = (*Unsupported)(nil)
	_ FileProvider     = (*Unsupported)(nil)
	_ NoteProvider     = (*Unsupported)(nil)
	_ MailProvider     = (*Unsupported)(nil)
)

// NewUnsupported returns a stub provider with the given ID.
func NewUnsupported(id string) *Unsupported {
	return &Unsupported{id: id}
}

func (u *Unsupported) ID() string { return u.id }

func (u *Unsupported) Capabilities() []models.Capability {
	return models.AllCapabilities
}

func (u *Unsupported) fail(op string) error {
	return &ProviderError{ProviderID: u.id, Op: op, Message: ErrNotSupported.Error(), Err: ErrNotSupported}
}

func (u *Unsupported) Authenticate(context.Context) error { return u.fail("authenticate") }

func (u *Unsupported) IsAuthenticated(context.Context) bool { return false }

func (u *Unsupported) GetUserProfile(context.Context) (*models.Profile, error) {
	return nil, u.fail("getUserProfile")
}

func (u *Unsupported) GetCalendarEvents(context.Context, models.EventQuery) ([]models.Event, error) {
	return nil, u.fail("getCalendarEvents")
}

func (u *Unsupported) CreateEvent(context.Context, models.EventDetails) (*models.Event, error) {
	return nil, u.fail("createEvent")
}

func (u *Unsupported) UpdateEvent(context.Context, models.EventUpdate) (*models.Event, error) {
	return nil, u.fail("updateEvent")
}

func (u *Unsupported) DeleteEvent(context.Context, string) error { return u.fail("deleteEvent") }

func (u *Unsupported) GetTasks(context.Context, models.TaskQuery) ([]models.Task, error) {
	return nil, u.fail("getTasks")
}

func (u *Unsupported) CreateTask(context.Context, models.TaskDetails) (*models.Task, error) {
	return nil, u.fail("createTask")
}

func (u *Unsupported) UpdateTask(context.Context, models.TaskUpdate) (*models.Task, error) {
	return nil, u.fail("updateTask")
}

func (u *Unsupported) DeleteTask(context.Context, string) error { return u.fail("deleteTask") }

func (u *Unsupported) FindContacts(context.Context, string) ([]models.Contact, error) {
	return nil, u.fail("findContacts")
}

func (u *Unsupported) FindDocuments(context.Context, string) ([]models.Document, error) {
	return nil, u.fail("findDocuments")
}

func (u *Unsupported) CreateDoc(context.Context, models.DocDetails) (*models.Document, error) {
	return nil, u.fail("createDoc")
}

func (u *Unsupported) CreateNote(context.Context, models.NoteDetails) (*models.Note, error) {
	return nil, u.fail("createNote")
}

func (u *Unsupported) FindNotes(context.Context, string) ([]models.Note, error) {
	return nil, u.fail("findNotes")
}

func (u *Unsupported) GetRecentEmails(context.Context, models.MailQuery) ([]models.Email, error) {
	return nil, u.fail("getRecentEmails")
}

func (u *Unsupported) SendMail(context.Context, models.OutgoingMail) error { return u.fail("sendMail") }

func (u *Unsupported) DeleteEmail(context.Context, string) error { return u.fail("deleteEmail") }
