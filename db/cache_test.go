// ABOUTME: Tests for full and incremental reconciliation against SQLite
// ABOUTME: Covers idempotence, deletion, non-deletion, key uniqueness and partial-column upserts
package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceIDs(t *testing.T, store *Store, table Table, userID uuid.UUID) []string {
	t.Helper()
	ids, err := cachedSourceIDs(context.Background(), store.db, store, table, userID)
	require.NoError(t, err)
	return ids
}

func fileRow(id, name string) Row {
	return Row{SourceID: id, Fields: map[string]any{"name": name, "mime_type": "application/vnd.google-apps.document"}}
}

func TestReconcileFullIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	clock := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return clock })

	rows := []Row{fileRow("f1", "Old Plan"), fileRow("f2", "Budget")}

	_, err := store.ReconcileFull(ctx, FilesTable, userID, rows)
	require.NoError(t, err)
	before, err := store.Snapshot(ctx, FilesTable, userID)
	require.NoError(t, err)

	// Second pass an hour later with the same remote set
	clock = clock.Add(time.Hour)
	stats, err := store.ReconcileFull(ctx, FilesTable, userID, rows)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Unchanged: 2}, stats)

	after, err := store.Snapshot(ctx, FilesTable, userID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReconcileFullDeletesMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.ReconcileFull(ctx, ContactsTable, userID, []Row{
		{SourceID: "A", Fields: map[string]any{"name": "Ann"}},
		{SourceID: "B", Fields: map[string]any{"name": "Bo"}},
		{SourceID: "C", Fields: map[string]any{"name": "Cy"}},
	})
	require.NoError(t, err)

	stats, err := store.ReconcileFull(ctx, ContactsTable, userID, []Row{
		{SourceID: "A", Fields: map[string]any{"name": "Ann"}},
		{SourceID: "C", Fields: map[string]any{"name": "Cy"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)
	assert.ElementsMatch(t, []string{"A", "C"}, sourceIDs(t, store, ContactsTable, userID))
}

func TestReconcileFullEmptyRemoteClearsTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.ReconcileFull(ctx, TasksTable, userID, []Row{{SourceID: "t1", Fields: map[string]any{"title": "Ship"}}})
	require.NoError(t, err)

	_, err = store.ReconcileFull(ctx, TasksTable, userID, nil)
	require.NoError(t, err)
	assert.Empty(t, sourceIDs(t, store, TasksTable, userID))
}

func TestUpsertRowsNeverDeletes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.UpsertRows(ctx, EventsTable, userID, []Row{
		{SourceID: "A", Fields: map[string]any{"summary": "a"}},
		{SourceID: "B", Fields: map[string]any{"summary": "b"}},
		{SourceID: "C", Fields: map[string]any{"summary": "c"}},
	})
	require.NoError(t, err)

	stats, err := store.UpsertRows(ctx, EventsTable, userID, []Row{
		{SourceID: "C", Fields: map[string]any{"summary": "c"}},
		{SourceID: "D", Fields: map[string]any{"summary": "d"}},
	})
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Written: 1, Unchanged: 1}, stats)
	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, sourceIDs(t, store, EventsTable, userID))
}

func TestUpsertKeepsOneRowPerSourceID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.UpsertRows(ctx, EmailsTable, userID, []Row{{SourceID: "m1", Fields: map[string]any{"subject": "Draft"}}})
	require.NoError(t, err)
	_, err = store.UpsertRows(ctx, EmailsTable, userID, []Row{{SourceID: "m1", Fields: map[string]any{"subject": "Final"}}})
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, EmailsTable, userID)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "Final", snap[0]["subject"])
}

func TestUpsertOnlyTouchesIncludedColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.UpsertRows(ctx, EmailsTable, userID, []Row{{SourceID: "m1", Fields: map[string]any{"subject": "Hi", "body": "secret"}}})
	require.NoError(t, err)

	// Body excluded on the next pass; it must keep its cached value
	_, err = store.UpsertRows(ctx, EmailsTable, userID, []Row{{SourceID: "m1", Fields: map[string]any{"subject": "Hi again"}}})
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, EmailsTable, userID)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "Hi again", snap[0]["subject"])
	assert.Equal(t, "secret", snap[0]["body"])
}

func TestUpdatedAtMovesOnlyOnChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	clock := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return clock })

	_, err := store.UpsertRows(ctx, FilesTable, userID, []Row{fileRow("f1", "Plan")})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	_, err = store.UpsertRows(ctx, FilesTable, userID, []Row{fileRow("f1", "Plan v2")})
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, FilesTable, userID)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	created := snap[0]["created_at"].(time.Time)
	updated := snap[0]["updated_at"].(time.Time)
	assert.True(t, updated.After(created))
}

func TestReconcileIsolatesUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := store.ReconcileFull(ctx, FilesTable, alice, []Row{fileRow("shared", "Alice copy")})
	require.NoError(t, err)
	_, err = store.ReconcileFull(ctx, FilesTable, bob, []Row{fileRow("shared", "Bob copy")})
	require.NoError(t, err)

	// Bob's empty sync must not touch Alice's row
	_, err = store.ReconcileFull(ctx, FilesTable, bob, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"shared"}, sourceIDs(t, store, FilesTable, alice))
	assert.Empty(t, sourceIDs(t, store, FilesTable, bob))
}

func TestFilesScenarioNoDeletions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.ReconcileFull(ctx, FilesTable, userID, []Row{{SourceID: "f1", Fields: map[string]any{"name": "Old Plan"}}})
	require.NoError(t, err)

	stats, err := store.ReconcileFull(ctx, FilesTable, userID, []Row{
		{SourceID: "f1", Fields: map[string]any{"name": "Old Plan"}},
		{SourceID: "f2", Fields: map[string]any{"name": "Budget"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Deleted)

	snap, err := store.Snapshot(ctx, FilesTable, userID)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, "Old Plan", snap[0]["name"])
	assert.Equal(t, "Budget", snap[1]["name"])
}

func TestUpsertRejectsUnknownColumn(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertRows(context.Background(), FilesTable, uuid.New(), []Row{
		{SourceID: "f1", Fields: map[string]any{"name; DROP TABLE files": "x"}},
	})
	assert.Error(t, err)
}

func TestDuplicateSourceIDsInOneFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.ReconcileFull(ctx, FilesTable, userID, []Row{fileRow("f1", "first"), fileRow("f1", "second")})
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, FilesTable, userID)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "second", snap[0]["name"])
}
