// ABOUTME: Typed accessors over model-issued tool arguments
// ABOUTME: Tolerates the loose number and time encodings models emit
package tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Args are one tool call's arguments.
type Args map[string]any

// Has reports whether key is present and non-null.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns the value at key as a trimmed string.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// OptString returns a pointer to the value when key is present.
func (a Args) OptString(key string) *string {
	if !a.Has(key) {
		return nil
	}
	s := a.String(key)
	return &s
}

// Int returns the integer at key, or 0.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

// Bool returns the boolean at key, or false.
func (a Args) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// Strings returns the string list at key. A single string becomes a one-item list.
func (a Args) Strings(key string) []string {
	var out []string
	switch v := a[key].(type) {
	case []any:
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Time parses the value at key. Values without a zone are read in loc.
func (a Args) Time(key string, loc *time.Location) (*time.Time, error) {
	raw := a.String(key)
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: cannot parse %q as a date-time", key, raw)
}
