// ABOUTME: Tests for contact deduplication by email
// ABOUTME: Covers lookup, merge of empty fields, and email normalization
package sync

import (
	"testing"

	"github.com/harperreed/deskhand/models"
)

func TestMatchContactByEmail(t *testing.T) {
	matcher := NewContactMatcher()
	matcher.Add(models.Contact{ID: "people/1", Name: "Alice", Email: "alice@example.com"})
	matcher.Add(models.Contact{ID: "people/2", Name: "Bob", Email: "bob@example.com"})

	// Test case-insensitive match
	match, found := matcher.FindMatch(" Alice@Example.com")
	if !found {
		t.Fatal("expected to find match for alice@example.com")
	}
	if match.ID != "people/1" {
		t.Errorf("expected people/1, got %s", match.ID)
	}

	// Test no match
	if _, found = matcher.FindMatch("charlie@example.com"); found {
		t.Error("expected no match for charlie@example.com")
	}
	if _, found = matcher.FindMatch(""); found {
		t.Error("empty email should never match")
	}
}

func TestDedupeContactsMergesByEmail(t *testing.T) {
	got := DedupeContacts([]models.Contact{
		{ID: "people/1", Name: "Ivan Petrov", Email: "ivan@example.com"},
		{ID: "other/9", Name: "ivan", Email: "IVAN@example.com", Phone: "+1 555 0100", Company: "Acme"},
		{ID: "people/2", Name: "No Email"},
		{ID: "people/3", Name: "Also No Email"},
	})

	if len(got) != 3 {
		t.Fatalf("expected 3 contacts, got %d: %+v", len(got), got)
	}
	ivan := got[0]
	if ivan.ID != "people/1" || ivan.Name != "Ivan Petrov" {
		t.Errorf("first-seen contact should win, got %+v", ivan)
	}
	if ivan.Phone != "+1 555 0100" || ivan.Company != "Acme" {
		t.Errorf("empty fields should be filled from the duplicate, got %+v", ivan)
	}
	if got[1].ID != "people/2" || got[2].ID != "people/3" {
		t.Errorf("contacts without email must be kept in order, got %+v", got[1:])
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Alice@Example.com", "alice@example.com"},
		{"alice.smith@example.com", "alice.smith@example.com"},
		{" ALICE@EXAMPLE.COM ", "alice@example.com"},
	}

	for _, tt := range tests {
		result := normalizeEmail(tt.input)
		if result != tt.expected {
			t.Errorf("normalizeEmail(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
