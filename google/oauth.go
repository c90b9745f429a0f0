// ABOUTME: OAuth configuration and per-user token storage for Google APIs
// ABOUTME: Handles the browser consent flow, token files at XDG paths, and refresh persistence
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
)

// Scopes requested at consent. Writes need calendar, tasks, documents and
// gmail.modify; reads of contacts and drive metadata stay read-only.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/tasks",
	"https://www.googleapis.com/auth/contacts.readonly",
	"https://www.googleapis.com/auth/drive.metadata.readonly",
	"https://www.googleapis.com/auth/documents",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// ErrNoToken is returned when a user has not completed the consent flow.
var ErrNoToken = errors.New("no google token stored")

// NewOAuthConfig creates the OAuth2 config for Google APIs.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		redirectURL = "http://localhost:8080/oauth/callback"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     googleauth.Endpoint,
	}
}

// TokenStore keeps one token file per user.
type TokenStore struct {
	Dir string
}

// DefaultTokenDir returns the XDG-compliant token directory.
func DefaultTokenDir() string {
	return filepath.Join(xdg.DataHome, "deskhand", "google-tokens")
}

// NewTokenStore creates a store rooted at dir, or the XDG default when dir is empty.
func NewTokenStore(dir string) *TokenStore {
	if dir == "" {
		dir = DefaultTokenDir()
	}
	return &TokenStore{Dir: dir}
}

// Path returns the token file for a user.
func (s *TokenStore) Path(userID uuid.UUID) string {
	return filepath.Join(s.Dir, userID.String()+".json")
}

// Save writes the token with owner-only permissions.
func (s *TokenStore) Save(userID uuid.UUID, token *oauth2.Token) error {
	path := s.Path(userID)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// Load reads the user's token. A missing file yields ErrNoToken.
func (s *TokenStore) Load(userID uuid.UUID) (*oauth2.Token, error) {
	f, err := os.Open(s.Path(userID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

// Delete removes the user's token.
func (s *TokenStore) Delete(userID uuid.UUID) error {
	err := os.Remove(s.Path(userID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// persistingSource saves refreshed tokens back to the store.
type persistingSource struct {
	base    oauth2.TokenSource
	store   *TokenStore
	userID  uuid.UUID
	current string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != p.current {
		p.current = token.AccessToken
		_ = p.store.Save(p.userID, token)
	}
	return token, nil
}

// HTTPClient returns an authenticated client for the user whose refreshed
// tokens are written back to the store.
func HTTPClient(ctx context.Context, config *oauth2.Config, store *TokenStore, userID uuid.UUID) (*http.Client, error) {
	token, err := store.Load(userID)
	if err != nil {
		return nil, err
	}

	source := &persistingSource{
		base:    config.TokenSource(ctx, token),
		store:   store,
		userID:  userID,
		current: token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source)), nil
}

// Authorize runs the consent flow: it serves the redirect URL locally, hands
// the consent URL to open, and exchanges the returned code for a token.
func Authorize(ctx context.Context, config *oauth2.Config, open func(url string) error) (*oauth2.Token, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}

	redirect, err := parseRedirect(config.RedirectURL)
	if err != nil {
		return nil, err
	}

	state := uuid.NewString()
	tokenChan := make(chan *oauth2.Token, 1)
	errChan := make(chan error, 4)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.path, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errChan <- fmt.Errorf("oauth state mismatch")
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			http.Error(w, "exchange failed", http.StatusInternalServerError)
			return
		}

		tokenChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	listener, err := net.Listen("tcp", redirect.host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for oauth callback: %w", err)
	}
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if open != nil {
		_ = open(authURL)
	}

	// Wait for callback, error or cancellation
	select {
	case token := <-tokenChan:
		return token, nil
	case err := <-errChan:
		return nil, fmt.Errorf("OAuth flow failed: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type redirectTarget struct {
	host string
	path string
}

func parseRedirect(raw string) (redirectTarget, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return redirectTarget{}, fmt.Errorf("invalid redirect URL: %w", err)
	}
	if u.Host == "" {
		return redirectTarget{}, fmt.Errorf("redirect URL %q has no host", raw)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return redirectTarget{host: u.Host, path: path}, nil
}
