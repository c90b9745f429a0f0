// ABOUTME: The tool catalog offered to the model and the UI-only selection pseudo-tools
// ABOUTME: Tool and parameter names are a stable protocol; renaming breaks live conversations
package tools

import "github.com/harperreed/deskhand/models"

// Tool names.
const (
	GetCalendarEvents   = "get_calendar_events"
	CreateCalendarEvent = "create_calendar_event"
	UpdateCalendarEvent = "update_calendar_event"
	DeleteCalendarEvent = "delete_calendar_event"
	GetTasks            = "get_tasks"
	CreateTask          = "create_task"
	UpdateTask          = "update_task"
	DeleteTask          = "delete_task"
	FindContacts        = "find_contacts"
	FindDocuments       = "find_documents"
	CreateDocument      = "create_document"
	CreateNote          = "create_note"
	FindNotes           = "find_notes"
	GetRecentEmails     = "get_recent_emails"
	SendEmail           = "send_email"
	DeleteEmail         = "delete_email"
	GetUserProfile      = "get_user_profile"

	SelectContact  = "select_contact"
	SelectDocument = "select_document"
)

const timeHint = "ISO-8601 date-time, e.g. 2026-03-01T15:00:00Z"

const confirmFirst = " Only call this after you have the exact id from an earlier result and the user has explicitly confirmed."

// Catalog returns every declaration, including hidden pseudo-tools.
func Catalog() []Declaration {
	return []Declaration{
		{
			Name:        GetCalendarEvents,
			Description: "List calendar events in a time range. Defaults to the next seven days.",
			Capability:  models.CapabilityCalendar,
			Route:       RouteRead,
			Parameters: Object(map[string]*Schema{
				"time_min":    String("Start of the range, " + timeHint),
				"time_max":    String("End of the range, " + timeHint),
				"query":       String("Free-text filter on event titles and descriptions"),
				"max_results": Integer("Maximum number of events to return"),
			}),
		},
		{
			Name:        CreateCalendarEvent,
			Description: "Create a calendar event on the user's primary calendar.",
			Capability:  models.CapabilityCalendar,
			Route:       RouteWrite,
			Parameters: Object(map[string]*Schema{
				"summary":     String("Event title"),
				"description": String("Event description"),
				"location":    String("Where the event happens"),
				"start_time":  String("Event start, " + timeHint),
				"end_time":    String("Event end, " + timeHint),
				"attendees":   StringArray("Attendee email addresses"),
			}, "summary", "start_time", "end_time"),
		},
		{
			Name:        UpdateCalendarEvent,
			Description: "Change fields of an existing calendar event. Only the given fields change.",
			Capability:  models.CapabilityCalendar,
			Route:       RouteWrite,
			Parameters: Object(map[string]*Schema{
				"event_id":    String("Id of the event to update"),
				"summary":     String("New title"),
				"description": String("New description"),
				"location":    String("New location"),
				"start_time":  String("New start, " + timeHint),
				"end_time":    String("New end, " + timeHint),
			}, "event_id"),
		},
		{
			Name:        DeleteCalendarEvent,
			Description: "Delete a calendar event." + confirmFirst,
			Capability:  models.CapabilityCalendar,
			Route:       RouteWrite,
			Destructive: true,
			Parameters: Object(map[string]*Schema{
				"event_id": String("Id of the event to delete"),
			}, "event_id"),
		},
		{
			Name:        GetTasks,
			Description: "List the user's tasks.",
			Capability:  models.CapabilityTasks,
			Route:       RouteRead,
			Parameters: Object(map[string]*Schema{
				"show_completed": Boolean("Include completed tasks"),
				"max_results":    Integer("Maximum number of tasks to return"),
			}),
		},
		{
			Name:        CreateTask,
			Description: "Create a task.",
			Capability:  models.CapabilityTasks,
			Route:       RouteWrite,
			Parameters: Object(map[string]*Schema{
				"title": String("Task title"),
				"notes": String("Task details"),
				"due":   String("Due date, " + timeHint),
			}, "title"),
		},
		{
			Name:        UpdateTask,
			Description: "Update a task, for example to mark it completed.",
			Capability:  models.CapabilityTasks,
			Route:       RouteWrite,
			Parameters: Object(map[string]*Schema{
				"task_id": String("Id of the task to update"),
				"title":   String("New title"),
				"notes":   String("New details"),
				"due":     String("New due date, " + timeHint),
				"status":  Enum("New status", models.TaskStatusNeedsAction, models.TaskStatusCompleted),
			}, "task_id"),
		},
		{
			Name:        DeleteTask,
			Description: "Delete a task." + confirmFirst,
			Capability:  models.CapabilityTasks,
			Route:       RouteWrite,
			Destructive: true,
			Parameters: Object(map[string]*Schema{
				"task_id": String("Id of the task to delete"),
			}, "task_id"),
		},
		{
			Name:        FindContacts,
			Description: "Search the user's contacts by name, email or company. Use before emailing or inviting someone by name.",
			Capability:  models.CapabilityContacts,
			Route:       RouteRead,
			Parameters: Object(map[string]*Schema{
				"query": String("Name, email or company to search for"),
			}, "query"),
		},
		{
			Name:        FindDocuments,
			Description: "Search the user's files and documents by name.",
			Capability:  models.CapabilityFiles,
			Route:       RouteRead,
			Parameters: Object(map[string]*Schema{
				"query": String("Words in the document name"),
			}, "query"),
		},
		{
			Name:        CreateDocument,
			Description: "Create a new document, optionally with initial content.",
			Capability:  models.CapabilityFiles,
			Route:       RouteWrite,
			Parameters: Object(map[string]*Schema{
				"title":   String("Document title"),
				"content": String("Initial body text"),
			}, "title"),
		},
		{
			Name:        CreateNote,
			Description: "Save a note for the user.",
			Capability:  models.CapabilityNotes,
			Route:       RouteRead,
			Parameters: Object(map[string]*Schema{
				"title":   String("Note title"),
				"content": String("Note body"),
			}, "title", "content"),
		},
		{
			Name:        FindNotes,
			Description: "Search the user's saved notes.",
			Capability:  models.CapabilityNotes,
			Route:       RouteRead,
			Parameters: Object(map[string]*Schema{
				"query": String("Words to search for in note titles and bodies"),
			}, "query"),
		},
		{
			Name:        GetRecentEmails,
			Description: "List the user's most recent emails.",
			Capability:  models.CapabilityMail,
			Route:       RouteIdentity,
			Parameters: Object(map[string]*Schema{
				"query":       String("Mail search query, e.g. from:ana@example.com"),
				"max_results": Integer("Maximum number of emails to return"),
			}),
		},
		{
			Name:        SendEmail,
			Description: "Send an email from the user's account. Confirm recipients and content with the user first.",
			Capability:  models.CapabilityMail,
			Route:       RouteIdentity,
			Parameters: Object(map[string]*Schema{
				"to":      StringArray("Recipient email addresses"),
				"subject": String("Subject line"),
				"body":    String("Plain-text body"),
			}, "to", "subject", "body"),
		},
		{
			Name:        DeleteEmail,
			Description: "Move an email to the trash." + confirmFirst,
			Capability:  models.CapabilityMail,
			Route:       RouteIdentity,
			Destructive: true,
			Parameters: Object(map[string]*Schema{
				"email_id": String("Id of the email to delete"),
			}, "email_id"),
		},
		{
			Name:        GetUserProfile,
			Description: "Get the signed-in user's name and email address.",
			Capability:  models.CapabilityIdentity,
			Route:       RouteIdentity,
			Parameters:  Object(nil),
		},
		{
			Name:        SelectContact,
			Description: "User picked one contact from a list of candidates.",
			Capability:  models.CapabilityContacts,
			Hidden:      true,
			Parameters: Object(map[string]*Schema{
				"option_id":       String("Id of the chosen contact"),
				"original_prompt": String("The request that produced the candidates"),
				"name":            String("Chosen contact's name"),
				"email":           String("Chosen contact's email"),
				"phone":           String("Chosen contact's phone"),
			}, "option_id", "original_prompt"),
		},
		{
			Name:        SelectDocument,
			Description: "User picked one document from a list of candidates.",
			Capability:  models.CapabilityFiles,
			Hidden:      true,
			Parameters: Object(map[string]*Schema{
				"option_id":       String("Id of the chosen document"),
				"original_prompt": String("The request that produced the candidates"),
				"name":            String("Chosen document's name"),
				"link":            String("Chosen document's link"),
			}, "option_id", "original_prompt"),
		},
	}
}
