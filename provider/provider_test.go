// ABOUTME: Tests for capability map resolution and provider error classification
// ABOUTME: Covers read/write provider split, configuration errors and stub providers
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/harperreed/deskhand/models"
)

type readOnly struct{ id string }

func (r readOnly) ID() string { return r.id }
func (r readOnly) Capabilities() []models.Capability {
	return []models.Capability{models.CapabilityContacts}
}
func (r readOnly) FindContacts(context.Context, string) ([]models.Contact, error) { return nil, nil }

func TestResolveReadUsesCapabilityMap(t *testing.T) {
	reg := NewRegistry(NewUnsupported(GoogleID), readOnly{id: ReplicaID})
	m := DefaultCapabilityMap()

	p, err := m.Resolve(reg, models.CapabilityContacts)
	require.NoError(t, err)
	assert.Equal(t, ReplicaID, p.ID())
}

func TestResolveWriteUsesIdentityProvider(t *testing.T) {
	reg := NewRegistry(NewUnsupported(GoogleID), readOnly{id: ReplicaID})
	m := DefaultCapabilityMap()
	m[models.CapabilityCalendar] = ReplicaID

	p, err := m.ResolveWrite(reg, models.CapabilityCalendar)
	require.NoError(t, err)
	assert.Equal(t, GoogleID, p.ID())

	// Notes keep their own binding
	p, err = m.ResolveWrite(reg, models.CapabilityNotes)
	require.NoError(t, err)
	assert.Equal(t, ReplicaID, p.ID())
}

func TestResolveMissingBinding(t *testing.T) {
	reg := NewRegistry()
	m := CapabilityMap{}

	_, err := m.Resolve(reg, models.CapabilityFiles)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, models.CapabilityFiles, cfgErr.Capability)
	assert.Contains(t, cfgErr.Remediation(), "files")
}

func TestResolveUnknownProvider(t *testing.T) {
	reg := NewRegistry()
	m := CapabilityMap{models.CapabilityFiles: "dropbox"}

	_, err := m.Resolve(reg, models.CapabilityFiles)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dropbox", cfgErr.ProviderID)
}

func TestAsRejectsMissingInterface(t *testing.T) {
	_, err := As[CalendarProvider](readOnly{id: "ro"}, models.CapabilityCalendar)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	cp, err := As[ContactProvider](readOnly{id: "ro"}, models.CapabilityContacts)
	require.NoError(t, err)
	assert.Equal(t, "ro", cp.ID())
}

func TestUnsupportedReturnsTypedError(t *testing.T) {
	u := NewUnsupported(MicrosoftID)
	_, err := u.FindContacts(context.Background(), "ivan")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MicrosoftID, pe.ProviderID)
	assert.True(t, errors.Is(err, ErrNotSupported))
	assert.False(t, u.IsAuthenticated(context.Background()))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		authExpired bool
	}{
		{"google 401", &googleapi.Error{Code: 401, Message: "Invalid Credentials"}, 401, true},
		{"google 500", &googleapi.Error{Code: 500, Message: "backend error"}, 500, false},
		{"wrapped 403", fmt.Errorf("call: %w", &googleapi.Error{Code: 403}), 403, false},
		{"refresh failure", &oauth2.RetrieveError{Response: &http.Response{StatusCode: 400}}, 400, true},
		{"plain", errors.New("connection reset"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(GoogleID, "op", tt.err)
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.Status)
			assert.Equal(t, tt.authExpired, pe.AuthExpired)
			assert.Equal(t, tt.authExpired, IsAuthExpired(err))
		})
	}

	assert.NoError(t, Classify(GoogleID, "op", nil))
}

type signedIn struct {
	Unsupported
	authed bool
}

func (s *signedIn) IsAuthenticated(context.Context) bool { return s.authed }

func TestAuthenticatedCapabilities(t *testing.T) {
	google := &signedIn{Unsupported: *NewUnsupported(GoogleID)}
	reg := NewRegistry(google, readOnly{id: ReplicaID})
	m := DefaultCapabilityMap()

	// The cache follows the identity account, so nothing is usable signed out
	assert.Empty(t, m.Authenticated(context.Background(), reg))

	google.authed = true
	assert.ElementsMatch(t, models.AllCapabilities, m.Authenticated(context.Background(), reg))
}

func TestAuthenticatedKeepsProvidersWithOwnSession(t *testing.T) {
	reg := NewRegistry(NewUnsupported(GoogleID), readOnly{id: ReplicaID}, &signedIn{Unsupported: *NewUnsupported(CharmID), authed: true})
	m := DefaultCapabilityMap()
	m[models.CapabilityNotes] = CharmID

	assert.Equal(t, []models.Capability{models.CapabilityNotes}, m.Authenticated(context.Background(), reg))
}
