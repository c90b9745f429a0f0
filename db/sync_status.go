// ABOUTME: Per-user, per-capability sync status records
// ABOUTME: Success sets last_sync and clears error; failure sets error and keeps last_sync and cursor
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/deskhand/models"
)

// GetSyncStatus returns the status row for one capability, or nil if no sync
// has been attempted.
func (s *Store) GetSyncStatus(ctx context.Context, userID uuid.UUID, c models.Capability) (*models.SyncStatus, error) {
	status := &models.SyncStatus{UserID: userID, Capability: c}
	var lastSync sql.NullTime
	var errorMessage, cursor sql.NullString

	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT last_sync, error, sync_cursor, updated_at
		FROM sync_status
		WHERE user_id = ? AND capability = ?
	`), userID.String(), string(c)).Scan(&lastSync, &errorMessage, &cursor, &status.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	if lastSync.Valid {
		t := lastSync.Time
		status.LastSync = &t
	}
	if errorMessage.Valid {
		status.Error = &errorMessage.String
	}
	status.Cursor = cursor.String

	return status, nil
}

// ListSyncStatus returns every recorded status for the user ordered by capability.
func (s *Store) ListSyncStatus(ctx context.Context, userID uuid.UUID) ([]models.SyncStatus, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT capability, last_sync, error, sync_cursor, updated_at
		FROM sync_status
		WHERE user_id = ?
		ORDER BY capability
	`), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list sync status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.SyncStatus
	for rows.Next() {
		st := models.SyncStatus{UserID: userID}
		var capability string
		var lastSync sql.NullTime
		var errorMessage, cursor sql.NullString
		if err := rows.Scan(&capability, &lastSync, &errorMessage, &cursor, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		st.Capability = models.Capability(capability)
		if lastSync.Valid {
			t := lastSync.Time
			st.LastSync = &t
		}
		if errorMessage.Valid {
			msg := errorMessage.String
			st.Error = &msg
		}
		st.Cursor = cursor.String
		out = append(out, st)
	}
	return out, rows.Err()
}

// RecordSyncSuccess marks a capability synced now. A non-empty cursor replaces
// the stored one; an empty cursor leaves it untouched.
func (s *Store) RecordSyncSuccess(ctx context.Context, userID uuid.UUID, c models.Capability, cursor string) error {
	now := s.timestamp()

	var cursorVal sql.NullString
	if cursor != "" {
		cursorVal = sql.NullString{String: cursor, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sync_status (user_id, capability, last_sync, error, sync_cursor, updated_at)
		VALUES (?, ?, ?, NULL, ?, ?)
		ON CONFLICT (user_id, capability) DO UPDATE SET
			last_sync = excluded.last_sync,
			error = NULL,
			sync_cursor = COALESCE(excluded.sync_cursor, sync_status.sync_cursor),
			updated_at = excluded.updated_at
	`), userID.String(), string(c), now, cursorVal, now)
	if err != nil {
		return fmt.Errorf("failed to record sync success: %w", err)
	}
	return nil
}

// RecordSyncFailure stores the error message, preserving last_sync and cursor.
func (s *Store) RecordSyncFailure(ctx context.Context, userID uuid.UUID, c models.Capability, message string) error {
	now := s.timestamp()

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sync_status (user_id, capability, last_sync, error, sync_cursor, updated_at)
		VALUES (?, ?, NULL, ?, NULL, ?)
		ON CONFLICT (user_id, capability) DO UPDATE SET
			error = excluded.error,
			updated_at = excluded.updated_at
	`), userID.String(), string(c), message, now)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}

// ClearSyncCursor drops the stored cursor so the next sync starts from a window.
func (s *Store) ClearSyncCursor(ctx context.Context, userID uuid.UUID, c models.Capability) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sync_status SET sync_cursor = NULL WHERE user_id = ? AND capability = ?
	`), userID.String(), string(c))
	if err != nil {
		return fmt.Errorf("failed to clear sync cursor: %w", err)
	}
	return nil
}
