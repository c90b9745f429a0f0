// ABOUTME: Recording fake provider for dispatcher, sync and session tests
// ABOUTME: Captures every method call with its arguments and returns canned results
package providertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
)

// Call is one recorded provider invocation.
type Call struct {
	Method string
	Args   any
}

// Fake implements every provider interface. Fields hold canned results;
// Errors maps a method name to the error it should return.
type Fake struct {
	ProviderID string
	Caps       []models.Capability
	Authed     bool

	Profile   *models.Profile
	Events    []models.Event
	Tasks     []models.Task
	Contacts  []models.Contact
	Documents []models.Document
	Notes     []models.Note
	Emails    []models.Email

	// EventCursor is returned from ListChangedEvents.
	EventCursor string

	Errors map[string]error

	mu    sync.Mutex
	calls []Call
}

var (
	_ provider.IdentityProvider = (*Fake)(nil)
	_ provider.CalendarProvider = (*Fake)(nil)
	_ provider.TaskProvider     = (*Fake)(nil)
	_ provider.ContactProvider  = (*Fake)(nil)
	_ provider.FileProvider     = (*Fake)(nil)
	_ provider.NoteProvider     = (*Fake)(nil)
	_ provider.MailProvider     = (*Fake)(nil)
	_ provider.ContactLister    = (*Fake)(nil)
	_ provider.FileLister       = (*Fake)(nil)
	_ provider.TaskLister       = (*Fake)(nil)
	_ provider.EventFeed        = (*Fake)(nil)
	_ provider.MailFeed         = (*Fake)(nil)
)

// New returns an authenticated fake declaring every capability.
func New(id string) *Fake {
	return &Fake{ProviderID: id, Caps: models.AllCapabilities, Authed: true, Errors: map[string]error{}}
}

func (f *Fake) record(method string, args any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	if err, ok := f.Errors[method]; ok {
		return err
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded calls for one method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) ID() string                        { return f.ProviderID }
func (f *Fake) Capabilities() []models.Capability { return f.Caps }

func (f *Fake) Authenticate(ctx context.Context) error {
	return f.record("Authenticate", nil)
}

func (f *Fake) IsAuthenticated(ctx context.Context) bool {
	return f.Authed
}

func (f *Fake) GetUserProfile(ctx context.Context) (*models.Profile, error) {
	if err := f.record("GetUserProfile", nil); err != nil {
		return nil, err
	}
	return f.Profile, nil
}

func (f *Fake) GetCalendarEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error) {
	if err := f.record("GetCalendarEvents", q); err != nil {
		return nil, err
	}
	return f.Events, nil
}

func (f *Fake) CreateEvent(ctx context.Context, d models.EventDetails) (*models.Event, error) {
	if err := f.record("CreateEvent", d); err != nil {
		return nil, err
	}
	return &models.Event{ID: "evt-new", Summary: d.Summary, Start: d.Start, End: d.End, Attendees: d.Attendees}, nil
}

func (f *Fake) UpdateEvent(ctx context.Context, u models.EventUpdate) (*models.Event, error) {
	if err := f.record("UpdateEvent", u); err != nil {
		return nil, err
	}
	ev := models.Event{ID: u.ID, Summary: "updated", Start: time.Now(), End: time.Now().Add(time.Hour)}
	if u.Summary != nil {
		ev.Summary = *u.Summary
	}
	return &ev, nil
}

func (f *Fake) DeleteEvent(ctx context.Context, id string) error {
	return f.record("DeleteEvent", id)
}

func (f *Fake) GetTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error) {
	if err := f.record("GetTasks", q); err != nil {
		return nil, err
	}
	return f.Tasks, nil
}

func (f *Fake) CreateTask(ctx context.Context, d models.TaskDetails) (*models.Task, error) {
	if err := f.record("CreateTask", d); err != nil {
		return nil, err
	}
	return &models.Task{ID: "task-new", Title: d.Title, Notes: d.Notes, Due: d.Due, Status: models.TaskStatusNeedsAction}, nil
}

func (f *Fake) UpdateTask(ctx context.Context, u models.TaskUpdate) (*models.Task, error) {
	if err := f.record("UpdateTask", u); err != nil {
		return nil, err
	}
	t := models.Task{ID: u.ID, Title: "task", Status: models.TaskStatusNeedsAction}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	return &t, nil
}

func (f *Fake) DeleteTask(ctx context.Context, id string) error {
	return f.record("DeleteTask", id)
}

func (f *Fake) FindContacts(ctx context.Context, query string) ([]models.Contact, error) {
	if err := f.record("FindContacts", query); err != nil {
		return nil, err
	}
	return f.Contacts, nil
}

func (f *Fake) FindDocuments(ctx context.Context, query string) ([]models.Document, error) {
	if err := f.record("FindDocuments", query); err != nil {
		return nil, err
	}
	return f.Documents, nil
}

func (f *Fake) CreateDoc(ctx context.Context, d models.DocDetails) (*models.Document, error) {
	if err := f.record("CreateDoc", d); err != nil {
		return nil, err
	}
	return &models.Document{ID: "doc-new", Name: d.Title, WebViewLink: "https://docs.example/doc-new"}, nil
}

func (f *Fake) CreateNote(ctx context.Context, d models.NoteDetails) (*models.Note, error) {
	if err := f.record("CreateNote", d); err != nil {
		return nil, err
	}
	return &models.Note{ID: "note-new", Title: d.Title, Content: d.Content}, nil
}

func (f *Fake) FindNotes(ctx context.Context, query string) ([]models.Note, error) {
	if err := f.record("FindNotes", query); err != nil {
		return nil, err
	}
	return f.Notes, nil
}

func (f *Fake) GetRecentEmails(ctx context.Context, q models.MailQuery) ([]models.Email, error) {
	if err := f.record("GetRecentEmails", q); err != nil {
		return nil, err
	}
	return f.Emails, nil
}

func (f *Fake) SendMail(ctx context.Context, m models.OutgoingMail) error {
	return f.record("SendMail", m)
}

func (f *Fake) DeleteEmail(ctx context.Context, id string) error {
	return f.record("DeleteEmail", id)
}

func (f *Fake) ListAllContacts(ctx context.Context) ([]models.Contact, error) {
	if err := f.record("ListAllContacts", nil); err != nil {
		return nil, err
	}
	return f.Contacts, nil
}

func (f *Fake) ListAllFiles(ctx context.Context) ([]models.Document, error) {
	if err := f.record("ListAllFiles", nil); err != nil {
		return nil, err
	}
	return f.Documents, nil
}

func (f *Fake) ListAllTasks(ctx context.Context) ([]models.Task, error) {
	if err := f.record("ListAllTasks", nil); err != nil {
		return nil, err
	}
	return f.Tasks, nil
}

func (f *Fake) ListChangedEvents(ctx context.Context, cursor string) ([]models.Event, string, error) {
	if err := f.record("ListChangedEvents", cursor); err != nil {
		return nil, "", err
	}
	return f.Events, f.EventCursor, nil
}

func (f *Fake) ListRecentEmails(ctx context.Context, limit int) ([]models.Email, error) {
	if err := f.record("ListRecentEmails", limit); err != nil {
		return nil, err
	}
	return f.Emails, nil
}

// Failing returns an error suitable for Errors entries.
func Failing(method string) error {
	return fmt.Errorf("%s: remote returned 503", method)
}
