// ABOUTME: Command table mapping each tool name to one provider operation
// ABOUTME: Handlers narrow the resolved provider and convert arguments to domain types
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
	"github.com/harperreed/deskhand/tools"
)

// Handler invokes one provider operation. A nil result renders as a completion message.
type Handler func(ctx context.Context, p provider.Provider, args tools.Args, turn Turn) (any, error)

// Command is one entry of the dispatch table.
type Command struct {
	// Op names the provider method, used in errors and logs.
	Op  string
	Run Handler
	// Describe renders a one-line summary for confirmation prompts.
	Describe func(args tools.Args) string
}

func invalid(tool string, err error) error {
	return &tools.InvalidArgumentsError{Tool: tool, Reason: err.Error(), Err: err}
}

// DefaultCommands returns the handler for every tool in the catalog.
func DefaultCommands() map[string]Command {
	return map[string]Command{
		tools.GetCalendarEvents: {Op: "GetCalendarEvents", Run: getCalendarEvents},
		tools.CreateCalendarEvent: {Op: "CreateEvent", Run: createCalendarEvent, Describe: func(a tools.Args) string {
			return fmt.Sprintf("Create event %q", a.String("summary"))
		}},
		tools.UpdateCalendarEvent: {Op: "UpdateEvent", Run: updateCalendarEvent},
		tools.DeleteCalendarEvent: {Op: "DeleteEvent", Run: deleteCalendarEvent, Describe: func(a tools.Args) string {
			return fmt.Sprintf("Delete calendar event %s?", a.String("event_id"))
		}},
		tools.GetTasks:   {Op: "GetTasks", Run: getTasks},
		tools.CreateTask: {Op: "CreateTask", Run: createTask},
		tools.UpdateTask: {Op: "UpdateTask", Run: updateTask},
		tools.DeleteTask: {Op: "DeleteTask", Run: deleteTask, Describe: func(a tools.Args) string {
			return fmt.Sprintf("Delete task %s?", a.String("task_id"))
		}},
		tools.FindContacts:    {Op: "FindContacts", Run: findContacts},
		tools.FindDocuments:   {Op: "FindDocuments", Run: findDocuments},
		tools.CreateDocument:  {Op: "CreateDoc", Run: createDocument},
		tools.CreateNote:      {Op: "CreateNote", Run: createNote},
		tools.FindNotes:       {Op: "FindNotes", Run: findNotes},
		tools.GetRecentEmails: {Op: "GetRecentEmails", Run: getRecentEmails},
		tools.SendEmail:       {Op: "SendMail", Run: sendEmail},
		tools.DeleteEmail: {Op: "DeleteEmail", Run: deleteEmail, Describe: func(a tools.Args) string {
			return fmt.Sprintf("Move email %s to the trash?", a.String("email_id"))
		}},
		tools.GetUserProfile: {Op: "GetUserProfile", Run: getUserProfile},
	}
}

func getCalendarEvents(ctx context.Context, p provider.Provider, a tools.Args, t Turn) (any, error) {
	r, err := provider.As[provider.EventReader](p, models.CapabilityCalendar)
	if err != nil {
		return nil, err
	}
	q := models.EventQuery{Query: a.String("query"), MaxResults: a.Int("max_results")}
	if q.TimeMin, err = a.Time("time_min", t.Location); err != nil {
		return nil, invalid(tools.GetCalendarEvents, err)
	}
	if q.TimeMax, err = a.Time("time_max", t.Location); err != nil {
		return nil, invalid(tools.GetCalendarEvents, err)
	}
	return r.GetCalendarEvents(ctx, q)
}

func createCalendarEvent(ctx context.Context, p provider.Provider, a tools.Args, t Turn) (any, error) {
	cp, err := provider.As[provider.CalendarProvider](p, models.CapabilityCalendar)
	if err != nil {
		return nil, err
	}
	start, err := a.Time("start_time", t.Location)
	if err != nil {
		return nil, invalid(tools.CreateCalendarEvent, err)
	}
	end, err := a.Time("end_time", t.Location)
	if err != nil {
		return nil, invalid(tools.CreateCalendarEvent, err)
	}
	if start == nil || end == nil {
		return nil, invalid(tools.CreateCalendarEvent, fmt.Errorf("start_time and end_time are required"))
	}
	if end.Before(*start) {
		return nil, invalid(tools.CreateCalendarEvent, fmt.Errorf("end_time is before start_time"))
	}
	return cp.CreateEvent(ctx, models.EventDetails{
		Summary:     a.String("summary"),
		Description: a.String("description"),
		Location:    a.String("location"),
		Start:       *start,
		End:         *end,
		Attendees:   a.Strings("attendees"),
	})
}

func updateCalendarEvent(ctx context.Context, p provider.Provider, a tools.Args, t Turn) (any, error) {
	cp, err := provider.As[provider.CalendarProvider](p, models.CapabilityCalendar)
	if err != nil {
		return nil, err
	}
	u := models.EventUpdate{
		ID:          a.String("event_id"),
		Summary:     a.OptString("summary"),
		Description: a.OptString("description"),
		Location:    a.OptString("location"),
	}
	if u.Start, err = a.Time("start_time", t.Location); err != nil {
		return nil, invalid(tools.UpdateCalendarEvent, err)
	}
	if u.End, err = a.Time("end_time", t.Location); err != nil {
		return nil, invalid(tools.UpdateCalendarEvent, err)
	}
	return cp.UpdateEvent(ctx, u)
}

func deleteCalendarEvent(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	cp, err := provider.As[provider.CalendarProvider](p, models.CapabilityCalendar)
	if err != nil {
		return nil, err
	}
	return nil, cp.DeleteEvent(ctx, a.String("event_id"))
}

func getTasks(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	r, err := provider.As[provider.TaskReader](p, models.CapabilityTasks)
	if err != nil {
		return nil, err
	}
	return r.GetTasks(ctx, models.TaskQuery{ShowCompleted: a.Bool("show_completed"), MaxResults: a.Int("max_results")})
}

func createTask(ctx context.Context, p provider.Provider, a tools.Args, t Turn) (any, error) {
	tp, err := provider.As[provider.TaskProvider](p, models.CapabilityTasks)
	if err != nil {
		return nil, err
	}
	due, err := a.Time("due", t.Location)
	if err != nil {
		return nil, invalid(tools.CreateTask, err)
	}
	return tp.CreateTask(ctx, models.TaskDetails{Title: a.String("title"), Notes: a.String("notes"), Due: due})
}

func updateTask(ctx context.Context, p provider.Provider, a tools.Args, t Turn) (any, error) {
	tp, err := provider.As[provider.TaskProvider](p, models.CapabilityTasks)
	if err != nil {
		return nil, err
	}
	u := models.TaskUpdate{
		ID:     a.String("task_id"),
		Title:  a.OptString("title"),
		Notes:  a.OptString("notes"),
		Status: a.OptString("status"),
	}
	if u.Due, err = a.Time("due", t.Location); err != nil {
		return nil, invalid(tools.UpdateTask, err)
	}
	return tp.UpdateTask(ctx, u)
}

func deleteTask(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	tp, err := provider.As[provider.TaskProvider](p, models.CapabilityTasks)
	if err != nil {
		return nil, err
	}
	return nil, tp.DeleteTask(ctx, a.String("task_id"))
}

func findContacts(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	cp, err := provider.As[provider.ContactProvider](p, models.CapabilityContacts)
	if err != nil {
		return nil, err
	}
	return cp.FindContacts(ctx, a.String("query"))
}

func findDocuments(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	f, err := provider.As[provider.DocumentFinder](p, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}
	return f.FindDocuments(ctx, a.String("query"))
}

func createDocument(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	fp, err := provider.As[provider.FileProvider](p, models.CapabilityFiles)
	if err != nil {
		return nil, err
	}
	return fp.CreateDoc(ctx, models.DocDetails{Title: a.String("title"), Content: a.String("content")})
}

func createNote(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	np, err := provider.As[provider.NoteProvider](p, models.CapabilityNotes)
	if err != nil {
		return nil, err
	}
	return np.CreateNote(ctx, models.NoteDetails{Title: a.String("title"), Content: a.String("content")})
}

func findNotes(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	np, err := provider.As[provider.NoteProvider](p, models.CapabilityNotes)
	if err != nil {
		return nil, err
	}
	return np.FindNotes(ctx, a.String("query"))
}

func getRecentEmails(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	r, err := provider.As[provider.MailReader](p, models.CapabilityMail)
	if err != nil {
		return nil, err
	}
	return r.GetRecentEmails(ctx, models.MailQuery{Query: a.String("query"), MaxResults: a.Int("max_results")})
}

func sendEmail(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	mp, err := provider.As[provider.MailProvider](p, models.CapabilityMail)
	if err != nil {
		return nil, err
	}
	to := a.Strings("to")
	for _, addr := range to {
		if !strings.Contains(addr, "@") {
			return nil, invalid(tools.SendEmail, fmt.Errorf("%q is not an email address", addr))
		}
	}
	return nil, mp.SendMail(ctx, models.OutgoingMail{To: to, Subject: a.String("subject"), Body: a.String("body")})
}

func deleteEmail(ctx context.Context, p provider.Provider, a tools.Args, _ Turn) (any, error) {
	mp, err := provider.As[provider.MailProvider](p, models.CapabilityMail)
	if err != nil {
		return nil, err
	}
	return nil, mp.DeleteEmail(ctx, a.String("email_id"))
}

func getUserProfile(ctx context.Context, p provider.Provider, _ tools.Args, _ Turn) (any, error) {
	ip, err := provider.As[provider.IdentityProvider](p, models.CapabilityIdentity)
	if err != nil {
		return nil, err
	}
	return ip.GetUserProfile(ctx)
}
