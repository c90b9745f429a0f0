// ABOUTME: Tests for the Google provider against an httptest fake of the APIs
// ABOUTME: Covers sync-token fallback, conversions, doc creation, mail encoding and auth expiry
package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T, mux *http.ServeMux) *Provider {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(uuid.New(), NewOAuthConfig("id", "secret", ""), NewTokenStore(t.TempDir()),
		WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client())),
		WithClock(func() time.Time { return testNow }),
	)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func TestListChangedEventsFallsBackOnGone(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RawQuery)
		mu.Unlock()

		if r.URL.Query().Get("syncToken") == "stale" {
			writeAPIError(w, http.StatusGone, "Sync token is no longer valid, a full sync is required.")
			return
		}

		// Fallback must use a time window instead of the token
		assert.Equal(t, testNow.Add(-eventSyncWindow).Format(time.RFC3339), r.URL.Query().Get("timeMin"))
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{
				{
					"id":        "e1",
					"summary":   "Standup",
					"status":    "confirmed",
					"start":     map[string]any{"dateTime": "2026-05-04T09:00:00Z"},
					"end":       map[string]any{"dateTime": "2026-05-04T09:15:00Z"},
					"attendees": []map[string]any{{"email": "a@example.com"}, {"email": "b@example.com"}},
				},
				{
					"id":      "e2",
					"summary": "Offsite",
					"start":   map[string]any{"date": "2026-05-10"},
					"end":     map[string]any{"date": "2026-05-11"},
				},
			},
			"nextSyncToken": "fresh",
		})
	})

	p := newTestProvider(t, mux)
	events, cursor, err := p.ListChangedEvents(context.Background(), "stale")
	require.NoError(t, err)

	assert.Equal(t, "fresh", cursor)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, events[0].Attendees)
	assert.True(t, events[1].AllDay)
	assert.Len(t, seen, 2)
}

func TestListChangedEventsPaginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("syncToken"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "a"}}, "nextPageToken": "p2"})
			return
		}
		writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "b", "status": "cancelled"}}, "nextSyncToken": "tok-2"})
	})

	p := newTestProvider(t, mux)
	events, cursor, err := p.ListChangedEvents(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", cursor)
	require.Len(t, events, 2)
	assert.Equal(t, "cancelled", events[1].Status)
}

func TestGetUserProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "42", "email": "me@example.com", "name": "Me"})
	})

	p := newTestProvider(t, mux)
	profile, err := p.GetUserProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.Profile{ID: "42", Email: "me@example.com", Name: "Me"}, profile)
}

func TestFindContactsConvertsPeople(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/people:searchContacts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Ivan", r.URL.Query().Get("query"))
		writeJSON(t, w, map[string]any{
			"results": []map[string]any{
				{"person": map[string]any{
					"resourceName": "people/c1",
					"names":        []map[string]any{{"displayName": "Ivan Petrov"}},
					"emailAddresses": []map[string]any{
						{"value": "old@example.com"},
						{"value": "ivan@example.com", "metadata": map[string]any{"primary": true}},
					},
					"organizations": []map[string]any{{"name": "Acme", "title": "CTO"}},
				}},
			},
		})
	})

	p := newTestProvider(t, mux)
	contacts, err := p.FindContacts(context.Background(), "Ivan")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, models.Contact{ID: "people/c1", Name: "Ivan Petrov", Email: "ivan@example.com", Company: "Acme", JobTitle: "CTO"}, contacts[0])
}

func TestCreateDocInsertsContent(t *testing.T) {
	var inserted string

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/documents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"documentId": "doc-1", "title": "Q3 Plan"})
	})
	mux.HandleFunc("/v1/documents/doc-1:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Requests []struct {
				InsertText struct {
					Text string `json:"text"`
				} `json:"insertText"`
			} `json:"requests"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Requests, 1)
		inserted = body.Requests[0].InsertText.Text
		writeJSON(t, w, map[string]any{"documentId": "doc-1"})
	})

	p := newTestProvider(t, mux)
	doc, err := p.CreateDoc(context.Background(), models.DocDetails{Title: "Q3 Plan", Content: "Goals"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "https://docs.google.com/document/d/doc-1/edit", doc.WebViewLink)
	assert.Equal(t, "Goals", inserted)
}

func TestSendMailEncodesMessage(t *testing.T) {
	var raw string

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var msg gmail.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		decoded, err := base64.URLEncoding.DecodeString(msg.Raw)
		require.NoError(t, err)
		raw = string(decoded)
		writeJSON(t, w, map[string]any{"id": "sent-1"})
	})

	p := newTestProvider(t, mux)
	err := p.SendMail(context.Background(), models.OutgoingMail{
		To:      []string{"ivan@example.com", "grace@example.com"},
		Subject: "Lunch",
		Body:    "Noon?",
	})
	require.NoError(t, err)
	assert.Contains(t, raw, "To: ivan@example.com, grace@example.com\r\n")
	assert.Contains(t, raw, "Subject: Lunch\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nNoon?"))
}

func TestGetRecentEmailsParsesMessages(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("see attached"))

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"messages": []map[string]any{{"id": "m1", "threadId": "t1"}}})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id":           "m1",
			"threadId":     "t1",
			"snippet":      "see att",
			"internalDate": "1777896000000",
			"labelIds":     []string{"INBOX"},
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers": []map[string]any{
					{"name": "From", "value": "Ivan <ivan@example.com>"},
					{"name": "To", "value": "Me <me@example.com>"},
					{"name": "Subject", "value": "Report"},
				},
				"parts": []map[string]any{
					{"mimeType": "text/plain", "body": map[string]any{"data": body}},
				},
			},
		})
	})

	p := newTestProvider(t, mux)
	emails, err := p.GetRecentEmails(context.Background(), models.MailQuery{})
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "Report", emails[0].Subject)
	assert.Equal(t, []string{"me@example.com"}, emails[0].To)
	assert.Equal(t, "see attached", emails[0].Body)
	assert.Equal(t, time.UnixMilli(1777896000000).UTC(), emails[0].ReceivedAt)
}

func TestListAllTasksAcrossLists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "L1"}, {"id": "L2"}}})
	})
	mux.HandleFunc("/tasks/v1/lists/L1/tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "t1", "title": "Ship", "status": "needsAction", "due": "2026-05-06T00:00:00.000Z"}}})
	})
	mux.HandleFunc("/tasks/v1/lists/L2/tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "t2", "title": "Done", "status": "completed"}}})
	})

	p := newTestProvider(t, mux)
	tasks, err := p.ListAllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "L1", tasks[0].ListID)
	require.NotNil(t, tasks[0].Due)
	assert.Equal(t, "L2", tasks[1].ListID)
}

func TestUnauthorizedIsAuthExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "Invalid Credentials")
	})

	p := newTestProvider(t, mux)
	_, err := p.FindDocuments(context.Background(), "plan")
	require.Error(t, err)
	assert.True(t, provider.IsAuthExpired(err))

	var pe *provider.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.Equal(t, "findDocuments", pe.Op)
}

func TestMissingTokenIsAuthExpired(t *testing.T) {
	p := New(uuid.New(), NewOAuthConfig("id", "secret", ""), NewTokenStore(t.TempDir()))

	assert.False(t, p.IsAuthenticated(context.Background()))
	_, err := p.GetTasks(context.Background(), models.TaskQuery{})
	require.Error(t, err)
	assert.True(t, provider.IsAuthExpired(err))
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	userID := uuid.New()

	_, err := store.Load(userID)
	assert.ErrorIs(t, err, ErrNoToken)

	token := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: testNow}
	require.NoError(t, store.Save(userID, token))

	loaded, err := store.Load(userID)
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.AccessToken)
	assert.Equal(t, "r", loaded.RefreshToken)

	require.NoError(t, store.Delete(userID))
	_, err = store.Load(userID)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTaskRef(t *testing.T) {
	assert.Equal(t, "t1", TaskRef("", "t1"))
	assert.Equal(t, "t1", TaskRef("@default", "t1"))
	assert.Equal(t, "L1/t1", TaskRef("L1", "t1"))

	list, task := splitTaskRef("L1/t1")
	assert.Equal(t, "L1", list)
	assert.Equal(t, "t1", task)

	list, task = splitTaskRef("t1")
	assert.Equal(t, "@default", list)
	assert.Equal(t, "t1", task)
}

func TestOAuthConfigScopes(t *testing.T) {
	config := NewOAuthConfig("id", "secret", "")
	assert.Equal(t, "http://localhost:8080/oauth/callback", config.RedirectURL)
	assert.Contains(t, config.Scopes, "https://www.googleapis.com/auth/gmail.modify")
	assert.Contains(t, config.Scopes, "https://www.googleapis.com/auth/calendar")
}

func TestAuthorizeRequiresCredentials(t *testing.T) {
	_, err := Authorize(context.Background(), NewOAuthConfig("", "", ""), nil)
	assert.Error(t, err)
}
