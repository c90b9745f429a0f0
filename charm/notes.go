// ABOUTME: Charm-backed notes provider syncing notes across a user's devices
// ABOUTME: Stores notes as JSON under notes/<user>/<ulid> keys
package charm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
)

const notePrefix = "notes/"

// MaxNoteResults bounds FindNotes.
const MaxNoteResults = 10

var (
	_ provider.NoteProvider  = (*Provider)(nil)
	_ provider.Authenticator = (*Provider)(nil)
)

// Provider serves the notes capability from a charm KV store.
type Provider struct {
	client *Client
	userID uuid.UUID
	now    func() time.Time
}

// NewProvider creates a notes provider for userID over client.
func NewProvider(client *Client, userID uuid.UUID) *Provider {
	return &Provider{client: client, userID: userID, now: time.Now}
}

func (p *Provider) ID() string { return provider.CharmID }

func (p *Provider) Capabilities() []models.Capability {
	return []models.Capability{models.CapabilityNotes}
}

// Authenticate pulls remote changes; linking happens through the charm CLI.
func (p *Provider) Authenticate(ctx context.Context) error {
	if err := p.client.Sync(); err != nil {
		return provider.Classify(provider.CharmID, "authenticate", err)
	}
	return nil
}

func (p *Provider) IsAuthenticated(ctx context.Context) bool {
	return p.client.IsConnected()
}

func (p *Provider) userPrefix() string {
	return notePrefix + p.userID.String() + "/"
}

func (p *Provider) CreateNote(ctx context.Context, details models.NoteDetails) (*models.Note, error) {
	if strings.TrimSpace(details.Title) == "" {
		return nil, provider.Classify(provider.CharmID, "createNote", fmt.Errorf("note title is required"))
	}

	now := p.now().UTC().Truncate(time.Second)
	note := &models.Note{
		ID:        models.NewNoteID(now),
		UserID:    p.userID,
		Title:     details.Title,
		Content:   details.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(note)
	if err != nil {
		return nil, provider.Classify(provider.CharmID, "createNote", fmt.Errorf("failed to encode note: %w", err))
	}
	if err := p.client.Set([]byte(p.userPrefix()+note.ID), data); err != nil {
		return nil, provider.Classify(provider.CharmID, "createNote", fmt.Errorf("failed to store note: %w", err))
	}
	return note, nil
}

// FindNotes matches title or content case-insensitively, newest first.
func (p *Provider) FindNotes(ctx context.Context, query string) ([]models.Note, error) {
	keys, err := p.client.KeysWithPrefix([]byte(p.userPrefix()))
	if err != nil {
		return nil, provider.Classify(provider.CharmID, "findNotes", fmt.Errorf("failed to list notes: %w", err))
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	var notes []models.Note
	for _, k := range keys {
		data, err := p.client.Get(k)
		if err != nil {
			return nil, provider.Classify(provider.CharmID, "findNotes", fmt.Errorf("failed to read %s: %w", k, err))
		}
		var n models.Note
		if err := json.Unmarshal(data, &n); err != nil {
			// Skip entries written by something else
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(n.Title), needle) &&
			!strings.Contains(strings.ToLower(n.Content), needle) {
			continue
		}
		notes = append(notes, n)
	}

	// ULIDs sort by creation time
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID > notes[j].ID })
	if len(notes) > MaxNoteResults {
		notes = notes[:MaxNoteResults]
	}
	return notes, nil
}

// CountNotes returns how many notes the user has in the store.
func (p *Provider) CountNotes() (int, error) {
	keys, err := p.client.KeysWithPrefix([]byte(p.userPrefix()))
	if err != nil {
		return 0, fmt.Errorf("failed to list note keys: %w", err)
	}
	return len(keys), nil
}
