// ABOUTME: Google-backed capability provider and canonical identity provider
// ABOUTME: Lazily builds per-user API services from the stored OAuth token
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/tasks/v1"

	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
)

var (
	_ provider.IdentityProvider = (*Provider)(nil)
	_ provider.CalendarProvider = (*Provider)(nil)
	_ provider.TaskProvider     = (*Provider)(nil)
	_ provider.ContactProvider  = (*Provider)(nil)
	_ provider.FileProvider     = (*Provider)(nil)
	_ provider.MailProvider     = (*Provider)(nil)
	_ provider.ContactLister    = (*Provider)(nil)
	_ provider.FileLister       = (*Provider)(nil)
	_ provider.TaskLister       = (*Provider)(nil)
	_ provider.EventFeed        = (*Provider)(nil)
	_ provider.MailFeed         = (*Provider)(nil)
)

// Option configures a Provider.
type Option func(*Provider)

// WithClientOptions replaces token-based authentication with fixed API client
// options, e.g. an endpoint and HTTP client for a local fake.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(p *Provider) { p.clientOpts = opts }
}

// WithCalendarID selects the calendar used for events. Defaults to "primary".
func WithCalendarID(id string) Option {
	return func(p *Provider) { p.calendarID = id }
}

// WithBrowser sets the function used to open the consent URL.
func WithBrowser(open func(string) error) Option {
	return func(p *Provider) { p.openBrowser = open }
}

// WithClock overrides the time source for windowed reads.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// Provider implements every remote capability against one user's Google account.
type Provider struct {
	userID      uuid.UUID
	config      *oauth2.Config
	tokens      *TokenStore
	clientOpts  []option.ClientOption
	calendarID  string
	openBrowser func(string) error
	now         func() time.Time

	mu  sync.Mutex
	svc *services
}

type services struct {
	calendar *calendar.Service
	tasks    *tasks.Service
	people   *people.Service
	drive    *drive.Service
	docs     *docs.Service
	gmail    *gmail.Service
	userinfo *googleoauth.Service
}

// New creates a provider for userID.
func New(userID uuid.UUID, config *oauth2.Config, tokens *TokenStore, opts ...Option) *Provider {
	p := &Provider{
		userID:     userID,
		config:     config,
		tokens:     tokens,
		calendarID: "primary",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() string { return provider.GoogleID }

func (p *Provider) Capabilities() []models.Capability {
	return []models.Capability{
		models.CapabilityCalendar,
		models.CapabilityTasks,
		models.CapabilityContacts,
		models.CapabilityFiles,
		models.CapabilityMail,
		models.CapabilityIdentity,
	}
}

// services builds the API clients once per provider.
func (p *Provider) services(ctx context.Context) (*services, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.svc != nil {
		return p.svc, nil
	}

	opts := p.clientOpts
	if opts == nil {
		client, err := HTTPClient(context.Background(), p.config, p.tokens, p.userID)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithHTTPClient(client)}
	}

	var (
		s   services
		err error
	)
	if s.calendar, err = calendar.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if s.tasks, err = tasks.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if s.people, err = people.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}
	if s.drive, err = drive.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	if s.docs, err = docs.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}
	if s.gmail, err = gmail.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if s.userinfo, err = googleoauth.NewService(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	p.svc = &s
	return p.svc, nil
}

// fail classifies err for op. A missing token reads as expired authorization.
func (p *Provider) fail(op string, err error) error {
	if errors.Is(err, ErrNoToken) {
		return &provider.ProviderError{
			ProviderID:  provider.GoogleID,
			Op:          op,
			Status:      http.StatusUnauthorized,
			Message:     "not signed in to Google",
			AuthExpired: true,
			Err:         err,
		}
	}
	return provider.Classify(provider.GoogleID, op, err)
}

// Authenticate runs the consent flow and stores the resulting token.
func (p *Provider) Authenticate(ctx context.Context) error {
	token, err := Authorize(ctx, p.config, p.openBrowser)
	if err != nil {
		return err
	}
	if err := p.tokens.Save(p.userID, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	// Drop cached services so the next call picks up the new token
	p.mu.Lock()
	p.svc = nil
	p.mu.Unlock()
	return nil
}

// IsAuthenticated reports whether a token is stored for the user.
func (p *Provider) IsAuthenticated(ctx context.Context) bool {
	if p.clientOpts != nil {
		return true
	}
	_, err := p.tokens.Load(p.userID)
	return err == nil
}

// GetUserProfile returns the signed-in account.
func (p *Provider) GetUserProfile(ctx context.Context) (*models.Profile, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("getUserProfile", err)
	}

	info, err := s.userinfo.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, p.fail("getUserProfile", err)
	}

	return &models.Profile{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
