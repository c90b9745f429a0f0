// ABOUTME: Tests for the tool registry, argument validation and model conversions
// ABOUTME: Guards the stable tool names and required fields
package tools

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/harperreed/deskhand/models"
)

func TestCatalogNamesAreStable(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{
		"get_calendar_events", "create_calendar_event", "update_calendar_event", "delete_calendar_event",
		"get_tasks", "create_task", "update_task", "delete_task",
		"find_contacts", "find_documents", "create_document",
		"create_note", "find_notes",
		"get_recent_emails", "send_email", "delete_email",
		"get_user_profile",
		"select_contact", "select_document",
	}, r.names())
}

func TestDestructiveTools(t *testing.T) {
	var destructive []string
	for _, d := range Default().all() {
		if d.Destructive {
			destructive = append(destructive, d.Name)
		}
	}
	assert.ElementsMatch(t, []string{DeleteCalendarEvent, DeleteTask, DeleteEmail}, destructive)
}

func TestValidateRequiredFields(t *testing.T) {
	r := Default()

	err := r.Validate(CreateCalendarEvent, map[string]any{"summary": "Lunch"})
	require.Error(t, err)
	var invalid *InvalidArgumentsError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, CreateCalendarEvent, invalid.Tool)
	assert.Contains(t, invalid.Reason, "missing properties")

	assert.NoError(t, r.Validate(CreateCalendarEvent, map[string]any{
		"summary":    "Lunch",
		"start_time": "2026-03-01T12:00:00Z",
		"end_time":   "2026-03-01T13:00:00Z",
		"attendees":  []any{"ana@example.com"},
	}))
}

func TestValidateEnumAndTypes(t *testing.T) {
	r := Default()

	assert.NoError(t, r.Validate(UpdateTask, map[string]any{"task_id": "t1", "status": "completed"}))
	assert.Error(t, r.Validate(UpdateTask, map[string]any{"task_id": "t1", "status": "done"}))
	assert.Error(t, r.Validate(GetTasks, map[string]any{"show_completed": "yes"}))
	assert.Error(t, r.Validate(SendEmail, map[string]any{"to": "ana@example.com", "subject": "s", "body": "b"}))
	assert.NoError(t, r.Validate(GetUserProfile, nil))
}

func TestValidateUnknownTool(t *testing.T) {
	err := Default().Validate("launch_rockets", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestForCapabilities(t *testing.T) {
	r := Default().ForCapabilities([]models.Capability{models.CapabilityNotes, models.CapabilityContacts})
	assert.Equal(t, []string{FindContacts, CreateNote, FindNotes, SelectContact}, r.names())

	assert.Empty(t, Default().ForCapabilities(nil).names())
	assert.Nil(t, Default().ForCapabilities(nil).ToGenAI())
}

func TestSubset(t *testing.T) {
	r := Default().Subset(FindContacts, SelectContact, "nope")
	assert.Equal(t, []string{FindContacts, SelectContact}, r.names())
	assert.Len(t, r.Visible(), 1)

	assert.Error(t, r.Validate(FindContacts, map[string]any{}))
	assert.NoError(t, r.Validate(FindContacts, map[string]any{"query": "ivan"}))
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	d := Declaration{Name: "x", Parameters: Object(nil)}
	_, err := NewRegistry(d, d)
	assert.Error(t, err)
}

func TestToGenAIOmitsHiddenTools(t *testing.T) {
	tools := Default().ToGenAI()
	require.Len(t, tools, 1)

	byName := map[string]*genai.FunctionDeclaration{}
	for _, fd := range tools[0].FunctionDeclarations {
		byName[fd.Name] = fd
	}
	assert.NotContains(t, byName, SelectContact)
	assert.NotContains(t, byName, SelectDocument)

	create := byName[CreateCalendarEvent]
	require.NotNil(t, create)
	assert.Equal(t, genai.TypeObject, create.Parameters.Type)
	assert.Equal(t, []string{"summary", "start_time", "end_time"}, create.Parameters.Required)
	assert.Equal(t, genai.TypeArray, create.Parameters.Properties["attendees"].Type)

	assert.Nil(t, byName[GetUserProfile].Parameters)
}

func TestMCPSchema(t *testing.T) {
	d, ok := Default().Lookup(UpdateTask)
	require.True(t, ok)

	s := d.Parameters.MCPSchema()
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"task_id"}, s.Required)
	assert.Equal(t, []any{models.TaskStatusNeedsAction, models.TaskStatusCompleted}, s.Properties["status"].Enum)
}

func TestArgsAccessors(t *testing.T) {
	a := Args{
		"query":       "  ivan ",
		"max_results": float64(5),
		"flag":        true,
		"to":          []any{"a@example.com", " b@example.com"},
		"cc":          "c@example.com, d@example.com",
		"when":        "2026-03-01T15:00",
		"null":        nil,
	}

	assert.Equal(t, "ivan", a.String("query"))
	assert.Equal(t, 5, a.Int("max_results"))
	assert.True(t, a.Bool("flag"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, a.Strings("to"))
	assert.Equal(t, []string{"c@example.com", "d@example.com"}, a.Strings("cc"))
	assert.False(t, a.Has("null"))
	assert.Nil(t, a.OptString("missing"))

	when, err := a.Time("when", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC), *when)

	_, err = Args{"when": "next tuesday"}.Time("when", time.UTC)
	assert.Error(t, err)

	missing, err := a.Time("absent", time.UTC)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
