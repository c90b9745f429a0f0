// ABOUTME: Encoding between entity fields and TEXT cache columns
// ABOUTME: Times are RFC3339 UTC, lists are JSON arrays, booleans are "true"/"false"
package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// TimeValue encodes t for a TEXT column. Nil encodes as NULL.
func TimeValue(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// ListValue encodes a string list as a JSON array. Empty lists encode as NULL.
func ListValue(items []string) any {
	if len(items) == 0 {
		return nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return string(b)
}

// BoolValue encodes b for a TEXT column.
func BoolValue(b bool) any {
	if b {
		return "true"
	}
	return "false"
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}
