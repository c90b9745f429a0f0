// ABOUTME: Tests for cache search, listings, notes, sync status and settings
// ABOUTME: Exercises user scoping and the ten-row search bound against SQLite
package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/deskhand/models"
)

func TestFindContactsCaseInsensitiveAndScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := store.ReconcileFull(ctx, ContactsTable, alice, []Row{
		{SourceID: "people/1", Fields: map[string]any{"name": "Ivan Petrov", "email": "ivan.p@example.com"}},
		{SourceID: "people/2", Fields: map[string]any{"name": "Ivan Smirnov", "email": "ismirnov@example.com", "company": "Acme"}},
		{SourceID: "people/3", Fields: map[string]any{"name": "Grace Hopper"}},
	})
	require.NoError(t, err)
	_, err = store.ReconcileFull(ctx, ContactsTable, bob, []Row{
		{SourceID: "people/9", Fields: map[string]any{"name": "Ivan Bobsfriend"}},
	})
	require.NoError(t, err)

	got, err := store.FindContacts(ctx, alice, "IVAN", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ivan Petrov", got[0].Name)
	assert.Equal(t, "people/1", got[0].ID)

	byCompany, err := store.FindContacts(ctx, alice, "acme", 0)
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "Ivan Smirnov", byCompany[0].Name)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.ReconcileFull(ctx, ContactsTable, userID, []Row{
		{SourceID: "people/1", Fields: map[string]any{"name": "Ivan Petrov", "email": "ivan@example.com"}},
		{SourceID: "people/2", Fields: map[string]any{"name": "Grace Hopper", "email": "grace_hopper@example.com"}},
		{SourceID: "people/3", Fields: map[string]any{"name": "Ada 100% Lovelace"}},
	})
	require.NoError(t, err)

	got, err := store.FindContacts(ctx, userID, "_", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "people/2", got[0].ID)

	got, err = store.FindContacts(ctx, userID, "%", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "people/3", got[0].ID)

	_, err = store.CreateNote(ctx, userID, models.NoteDetails{Title: "plain", Content: "nothing special"})
	require.NoError(t, err)
	notes, err := store.FindNotes(ctx, userID, "_", 0)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSearchIsBoundedToTen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	var rows []Row
	for i := 0; i < 25; i++ {
		rows = append(rows, Row{SourceID: fmt.Sprintf("f%02d", i), Fields: map[string]any{"name": fmt.Sprintf("Report %02d", i)}})
	}
	_, err := store.ReconcileFull(ctx, FilesTable, userID, rows)
	require.NoError(t, err)

	docs, err := store.FindDocuments(ctx, userID, "report", 100)
	require.NoError(t, err)
	assert.Len(t, docs, MaxSearchResults)
}

func TestListEventsWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) *time.Time { t := day.Add(time.Duration(h) * time.Hour); return &t }

	_, err := store.UpsertRows(ctx, EventsTable, userID, []Row{
		{SourceID: "e1", Fields: map[string]any{"summary": "Standup", "start_time": TimeValue(at(9)), "end_time": TimeValue(at(10)), "attendees": ListValue([]string{"a@example.com"})}},
		{SourceID: "e2", Fields: map[string]any{"summary": "Lunch", "start_time": TimeValue(at(12)), "end_time": TimeValue(at(13))}},
		{SourceID: "e3", Fields: map[string]any{"summary": "Tomorrow", "start_time": TimeValue(at(33)), "end_time": TimeValue(at(34))}},
		{SourceID: "e4", Fields: map[string]any{"summary": "Gone", "start_time": TimeValue(at(11)), "end_time": TimeValue(at(12)), "status": "cancelled"}},
	})
	require.NoError(t, err)

	events, err := store.ListEvents(ctx, userID, models.EventQuery{TimeMin: at(0), TimeMax: at(24)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, []string{"a@example.com"}, events[0].Attendees)
	assert.True(t, events[0].Start.Equal(*at(9)))
	assert.Equal(t, "Lunch", events[1].Summary)
}

func TestListTasksHidesCompleted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.ReconcileFull(ctx, TasksTable, userID, []Row{
		{SourceID: "t1", Fields: map[string]any{"title": "Open", "status": models.TaskStatusNeedsAction}},
		{SourceID: "t2", Fields: map[string]any{"title": "Done", "status": models.TaskStatusCompleted}},
	})
	require.NoError(t, err)

	open, err := store.ListTasks(ctx, userID, models.TaskQuery{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Open", open[0].Title)

	all, err := store.ListTasks(ctx, userID, models.TaskQuery{ShowCompleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	note, err := store.CreateNote(ctx, userID, models.NoteDetails{Title: "Offsite", Content: "Book the venue"})
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)

	_, err = store.CreateNote(ctx, userID, models.NoteDetails{Title: "Groceries", Content: "eggs"})
	require.NoError(t, err)

	found, err := store.FindNotes(ctx, userID, "venue", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, note.ID, found[0].ID)

	other, err := store.FindNotes(ctx, uuid.New(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = store.CreateNote(ctx, userID, models.NoteDetails{Title: "  "})
	assert.Error(t, err)
}

func TestSyncStatusLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	status, err := store.GetSyncStatus(ctx, userID, models.CapabilityCalendar)
	require.NoError(t, err)
	assert.Nil(t, status)

	// Failure before any success leaves last_sync empty
	require.NoError(t, store.RecordSyncFailure(ctx, userID, models.CapabilityCalendar, "boom"))
	status, err = store.GetSyncStatus(ctx, userID, models.CapabilityCalendar)
	require.NoError(t, err)
	assert.Nil(t, status.LastSync)
	require.NotNil(t, status.Error)
	assert.Equal(t, "boom", *status.Error)

	// Success clears error and stores cursor
	store.SetClock(func() time.Time { return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC) })
	require.NoError(t, store.RecordSyncSuccess(ctx, userID, models.CapabilityCalendar, "token-1"))
	status, err = store.GetSyncStatus(ctx, userID, models.CapabilityCalendar)
	require.NoError(t, err)
	require.NotNil(t, status.LastSync)
	assert.Nil(t, status.Error)
	assert.Equal(t, "token-1", status.Cursor)
	firstSync := *status.LastSync

	// Failure keeps last_sync and cursor
	store.SetClock(func() time.Time { return time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC) })
	require.NoError(t, store.RecordSyncFailure(ctx, userID, models.CapabilityCalendar, "auth expired"))
	status, err = store.GetSyncStatus(ctx, userID, models.CapabilityCalendar)
	require.NoError(t, err)
	require.NotNil(t, status.LastSync)
	assert.True(t, firstSync.Equal(*status.LastSync))
	assert.Equal(t, "token-1", status.Cursor)
	assert.False(t, status.OK())

	// Empty cursor on success keeps the stored one
	require.NoError(t, store.RecordSyncSuccess(ctx, userID, models.CapabilityCalendar, ""))
	status, err = store.GetSyncStatus(ctx, userID, models.CapabilityCalendar)
	require.NoError(t, err)
	assert.Equal(t, "token-1", status.Cursor)

	require.NoError(t, store.ClearSyncCursor(ctx, userID, models.CapabilityCalendar))
	status, err = store.GetSyncStatus(ctx, userID, models.CapabilityCalendar)
	require.NoError(t, err)
	assert.Empty(t, status.Cursor)

	all, err := store.ListSyncStatus(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCapabilityBindingsAndFieldSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.SetCapabilityBinding(ctx, userID, models.CapabilityContacts, "google"))
	require.NoError(t, store.SetCapabilityBinding(ctx, userID, models.CapabilityContacts, "cache"))
	bindings, err := store.CapabilityBindings(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[models.Capability]string{models.CapabilityContacts: "cache"}, bindings)

	require.NoError(t, store.SetFieldIncluded(ctx, userID, models.CapabilityMail, "body", false))
	settings, err := store.FieldSettings(ctx, userID, models.CapabilityMail)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"body": false}, settings)

	assert.Error(t, store.SetFieldIncluded(ctx, userID, models.CapabilityMail, "password", false))
	assert.Error(t, store.SetFieldIncluded(ctx, userID, models.CapabilityNotes, "title", false))
}
