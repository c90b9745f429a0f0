// ABOUTME: Contact deduplication for the contacts sync pass
// ABOUTME: Merges contacts that share an email so the cache holds one row per person
package sync

import (
	"strings"

	"github.com/harperreed/deskhand/models"
)

// ContactMatcher tracks contacts seen in one pass by normalized email.
type ContactMatcher struct {
	byEmail map[string]*models.Contact
	out     []*models.Contact
}

// NewContactMatcher creates an empty matcher.
func NewContactMatcher() *ContactMatcher {
	return &ContactMatcher{byEmail: make(map[string]*models.Contact)}
}

// FindMatch looks for a contact already added with the same email.
func (m *ContactMatcher) FindMatch(email string) (*models.Contact, bool) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return nil, false
	}
	contact, found := m.byEmail[normalized]
	return contact, found
}

// Add records c, or fills the empty fields of an earlier contact with the same email.
// Contacts without an email are never merged.
func (m *ContactMatcher) Add(c models.Contact) {
	if existing, ok := m.FindMatch(c.Email); ok {
		fillEmpty(&existing.Name, c.Name)
		fillEmpty(&existing.Phone, c.Phone)
		fillEmpty(&existing.Company, c.Company)
		fillEmpty(&existing.JobTitle, c.JobTitle)
		fillEmpty(&existing.Notes, c.Notes)
		return
	}

	stored := c
	m.out = append(m.out, &stored)
	if email := normalizeEmail(c.Email); email != "" {
		m.byEmail[email] = &stored
	}
}

// Contacts returns the merged contacts in first-seen order.
func (m *ContactMatcher) Contacts() []models.Contact {
	out := make([]models.Contact, len(m.out))
	for i, c := range m.out {
		out[i] = *c
	}
	return out
}

// DedupeContacts merges contacts that share an email.
func DedupeContacts(contacts []models.Contact) []models.Contact {
	m := NewContactMatcher()
	for _, c := range contacts {
		m.Add(c)
	}
	return m.Contacts()
}

func fillEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// normalizeEmail converts email to lowercase for comparison.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
