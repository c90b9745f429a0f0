// ABOUTME: User-scoped reads over the entity cache
// ABOUTME: Case-insensitive search for contacts and documents plus windowed event, task and email listings
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/deskhand/models"
)

// MaxSearchResults bounds every search result set.
const MaxSearchResults = 10

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// likeEscaper makes LIKE wildcards in user input match literally. Statements
// using the pattern declare ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
}

// FindContacts searches cached contacts by name, email or company.
func (s *Store) FindContacts(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.Contact, error) {
	limit = clampLimit(limit, MaxSearchResults)
	pattern := likePattern(query)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT source_id, name, email, phone, company, job_title, notes
		FROM contacts
		WHERE user_id = ?
		  AND (LOWER(COALESCE(name, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(email, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(company, '')) LIKE ? ESCAPE '\')
		ORDER BY name
		LIMIT ?
	`), userID.String(), pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		var name, email, phone, company, jobTitle, notes sql.NullString
		if err := rows.Scan(&c.ID, &name, &email, &phone, &company, &jobTitle, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		c.Name = name.String
		c.Email = email.String
		c.Phone = phone.String
		c.Company = company.String
		c.JobTitle = jobTitle.String
		c.Notes = notes.String
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// FindDocuments searches cached files by name, most recently modified first.
func (s *Store) FindDocuments(ctx context.Context, userID uuid.UUID, query string, limit int) ([]models.Document, error) {
	limit = clampLimit(limit, MaxSearchResults)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT source_id, name, mime_type, web_view_link, owner, modified_time
		FROM files
		WHERE user_id = ? AND LOWER(COALESCE(name, '')) LIKE ? ESCAPE '\'
		ORDER BY modified_time DESC, name
		LIMIT ?
	`), userID.String(), likePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		var name, mimeType, link, owner, modified sql.NullString
		if err := rows.Scan(&d.ID, &name, &mimeType, &link, &owner, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		d.Name = name.String
		d.MimeType = mimeType.String
		d.WebViewLink = link.String
		d.Owner = owner.String
		d.ModifiedTime = parseTime(modified)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListEvents returns cached events overlapping the query window, earliest first.
func (s *Store) ListEvents(ctx context.Context, userID uuid.UUID, q models.EventQuery) ([]models.Event, error) {
	limit := clampLimit(q.MaxResults, 50)

	query := `
		SELECT source_id, summary, description, location, start_time, end_time, all_day, attendees, status, html_link
		FROM calendar_events
		WHERE user_id = ? AND COALESCE(status, '') != 'cancelled'`
	args := []any{userID.String()}

	if q.TimeMin != nil {
		query += ` AND end_time >= ?`
		args = append(args, TimeValue(q.TimeMin))
	}
	if q.TimeMax != nil {
		query += ` AND start_time <= ?`
		args = append(args, TimeValue(q.TimeMax))
	}
	if strings.TrimSpace(q.Query) != "" {
		pattern := likePattern(q.Query)
		query += ` AND (LOWER(COALESCE(summary, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY start_time LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var summary, description, location, start, end, allDay, attendees, status, link sql.NullString
		if err := rows.Scan(&e.ID, &summary, &description, &location, &start, &end, &allDay, &attendees, &status, &link); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Summary = summary.String
		e.Description = description.String
		e.Location = location.String
		if t := parseTime(start); t != nil {
			e.Start = *t
		}
		if t := parseTime(end); t != nil {
			e.End = *t
		}
		e.AllDay = allDay.String == "true"
		e.Attendees = parseList(attendees)
		e.Status = status.String
		e.HTMLLink = link.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListTasks returns cached tasks, open ones first by due date.
func (s *Store) ListTasks(ctx context.Context, userID uuid.UUID, q models.TaskQuery) ([]models.Task, error) {
	limit := clampLimit(q.MaxResults, 100)

	query := `
		SELECT source_id, list_id, title, notes, due, status, completed_at
		FROM tasks
		WHERE user_id = ?`
	args := []any{userID.String()}
	if !q.ShowCompleted {
		query += ` AND COALESCE(status, '') != ?`
		args = append(args, models.TaskStatusCompleted)
	}
	query += ` ORDER BY CASE WHEN due IS NULL THEN 1 ELSE 0 END, due, title LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var listID, title, notes, due, status, completed sql.NullString
		if err := rows.Scan(&t.ID, &listID, &title, &notes, &due, &status, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.ListID = listID.String
		t.Title = title.String
		t.Notes = notes.String
		t.Due = parseTime(due)
		t.Status = status.String
		t.Completed = parseTime(completed)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListEmails returns cached messages, newest first.
func (s *Store) ListEmails(ctx context.Context, userID uuid.UUID, q models.MailQuery) ([]models.Email, error) {
	limit := clampLimit(q.MaxResults, 50)

	query := `
		SELECT source_id, thread_id, sender, recipients, subject, snippet, body, received_at, labels
		FROM emails
		WHERE user_id = ?`
	args := []any{userID.String()}
	if strings.TrimSpace(q.Query) != "" {
		pattern := likePattern(q.Query)
		query += ` AND (LOWER(COALESCE(subject, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(sender, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(snippet, '')) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern)
	}
	query += ` ORDER BY received_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var emails []models.Email
	for rows.Next() {
		var m models.Email
		var threadID, sender, recipients, subject, snippet, body, received, labels sql.NullString
		if err := rows.Scan(&m.ID, &threadID, &sender, &recipients, &subject, &snippet, &body, &received, &labels); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		m.ThreadID = threadID.String
		m.From = sender.String
		m.To = parseList(recipients)
		m.Subject = subject.String
		m.Snippet = snippet.String
		m.Body = body.String
		if t := parseTime(received); t != nil {
			m.ReceivedAt = *t
		}
		m.Labels = parseList(labels)
		emails = append(emails, m)
	}
	return emails, rows.Err()
}
