// ABOUTME: Cache-native notes storage
// ABOUTME: Notes are created locally with ULID ids and searched by title and content
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/deskhand/models"
)

// CreateNote stores a new note for the user.
func (s *Store) CreateNote(ctx context.Context, userID uuid.UUID, details models.NoteDetails) (*models.Note, error) {
	if strings.TrimSpace(details.Title) == "" {
		return nil, fmt.Errorf("note title is required")
	}

	now := s.timestamp()
	note := &models.Note{
		ID:        models.NewNoteID(now),
		UserID:    userID,
		Title:     details.Title,
		Content:   details.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), note.ID, userID.String(), note.Title, note.Content, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	return note, nil
}

// FindNotes searches the user's notes by title and content, newest first.
// An empty query returns the most recent notes.
func (s *Store) FindNotes(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.Note, error) {
	limit = clampLimit(limit, MaxSearchResults)
	pattern := likePattern(query)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, title, content, created_at, updated_at
		FROM notes
		WHERE user_id = ? AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')
		ORDER BY id DESC
		LIMIT ?
	`), userID.String(), pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []models.Note
	for rows.Next() {
		n := models.Note{UserID: userID}
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
