// ABOUTME: Reconciliation primitives for synced entity tables
// ABOUTME: Upserts keyed on (user_id, source_id) and full-set delete-then-upsert in one transaction
package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Row is one entity as written to the cache. Fields holds only the columns to
// write; columns absent from Fields keep their cached value.
type Row struct {
	SourceID string
	Fields   map[string]any
}

// WriteStats summarizes one reconciliation pass.
type WriteStats struct {
	Written   int
	Unchanged int
	Deleted   int
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func cachedSourceIDs(ctx context.Context, q queryer, s *Store, table Table, userID uuid.UUID) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.rebind(fmt.Sprintf(`SELECT source_id FROM %s WHERE user_id = ?`, table.Name)), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list cached ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cached id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReconcileFull makes the user's rows in table match rows exactly: cached rows
// whose source ID is absent from rows are deleted, then every row is upserted.
// Both steps commit together.
func (s *Store) ReconcileFull(ctx context.Context, table Table, userID uuid.UUID, rows []Row) (WriteStats, error) {
	var stats WriteStats
	rows = dedupe(rows)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	cached, err := cachedSourceIDs(ctx, tx, s, table, userID)
	if err != nil {
		return stats, err
	}

	remote := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		remote[r.SourceID] = struct{}{}
	}

	deleteQuery := s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND source_id = ?`, table.Name))
	for _, id := range cached {
		if _, ok := remote[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, deleteQuery, userID.String(), id); err != nil {
			return stats, fmt.Errorf("failed to delete %s/%s: %w", table.Name, id, err)
		}
		stats.Deleted++
	}

	now := s.timestamp()
	for _, r := range rows {
		changed, err := s.upsertRow(ctx, tx, table, userID, r, now)
		if err != nil {
			return stats, err
		}
		if changed {
			stats.Written++
		} else {
			stats.Unchanged++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	return stats, nil
}

// UpsertRows inserts or updates rows without deleting anything.
func (s *Store) UpsertRows(ctx context.Context, table Table, userID uuid.UUID, rows []Row) (WriteStats, error) {
	var stats WriteStats
	rows = dedupe(rows)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := s.timestamp()
	for _, r := range rows {
		changed, err := s.upsertRow(ctx, tx, table, userID, r, now)
		if err != nil {
			return stats, err
		}
		if changed {
			stats.Written++
		} else {
			stats.Unchanged++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return stats, nil
}

// upsertRow writes one row and reports whether anything changed. Only the
// columns present in row.Fields are set, and updated_at only moves when one of
// them differs from the cached value.
func (s *Store) upsertRow(ctx context.Context, tx *sql.Tx, table Table, userID uuid.UUID, row Row, now time.Time) (bool, error) {
	if row.SourceID == "" {
		return false, fmt.Errorf("row for %s has no source id", table.Name)
	}

	fields := make([]string, 0, len(row.Fields))
	for col := range row.Fields {
		if !table.HasColumn(col) {
			return false, fmt.Errorf("unknown column %q for table %s", col, table.Name)
		}
		fields = append(fields, col)
	}
	sort.Strings(fields)

	cols := append([]string{"user_id", "source_id"}, fields...)
	cols = append(cols, "created_at", "updated_at")

	args := make([]any, 0, len(cols))
	args = append(args, userID.String(), row.SourceID)
	for _, col := range fields {
		args = append(args, row.Fields[col])
	}
	args = append(args, now, now)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (user_id, source_id) ",
		table.Name, strings.Join(cols, ", "), placeholders)

	if len(fields) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		sets := make([]string, 0, len(fields)+1)
		diffs := make([]string, 0, len(fields))
		for _, col := range fields {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
			diffs = append(diffs, fmt.Sprintf("%s.%s %s excluded.%s", table.Name, col, s.distinct(), col))
		}
		sets = append(sets, "updated_at = excluded.updated_at")
		fmt.Fprintf(&b, "DO UPDATE SET %s WHERE %s", strings.Join(sets, ", "), strings.Join(diffs, " OR "))
	}

	res, err := tx.ExecContext(ctx, s.rebind(b.String()), args...)
	if err != nil {
		return false, fmt.Errorf("failed to upsert %s/%s: %w", table.Name, row.SourceID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read upsert result: %w", err)
	}
	return n > 0, nil
}

// dedupe keeps the last occurrence of each source ID, preserving first-seen order.
func dedupe(rows []Row) []Row {
	index := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if i, ok := index[r.SourceID]; ok {
			out[i] = r
			continue
		}
		index[r.SourceID] = len(out)
		out = append(out, r)
	}
	return out
}

// Snapshot returns every cached row for the user ordered by source ID, with
// column names as keys. Intended for inspection and export.
func (s *Store) Snapshot(ctx context.Context, table Table, userID uuid.UUID) ([]map[string]any, error) {
	cols := append([]string{"source_id"}, table.Columns...)
	cols = append(cols, "created_at", "updated_at")

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = ? ORDER BY source_id`, strings.Join(cols, ", "), table.Name)
	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", table.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table.Name, err)
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			record[col] = values[i]
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
