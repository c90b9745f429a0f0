// ABOUTME: Application wiring shared by the CLI, HTTP server and MCP surface
// ABOUTME: Builds per-user provider registries, capability maps, sessions and the sync source
package app

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/harperreed/deskhand/charm"
	"github.com/harperreed/deskhand/config"
	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/dispatch"
	"github.com/harperreed/deskhand/google"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
	"github.com/harperreed/deskhand/replica"
	"github.com/harperreed/deskhand/session"
	"github.com/harperreed/deskhand/sync"
	"github.com/harperreed/deskhand/tools"
)

// Option configures an App.
type Option func(*App)

// WithModel sets the model client used by sessions.
func WithModel(m session.ModelClient) Option {
	return func(a *App) { a.model = m }
}

// WithCharm supplies an already-open Charm client for the notes backend.
func WithCharm(c *charm.Client) Option {
	return func(a *App) { a.charm = c; a.charmTried = true }
}

// WithGoogleOptions passes options to every Google provider.
func WithGoogleOptions(opts ...google.Option) Option {
	return func(a *App) { a.googleOpts = append(a.googleOpts, opts...) }
}

// WithStore uses an existing cache store instead of opening DatabaseURL.
func WithStore(s *db.Store) Option {
	return func(a *App) { a.store = s }
}

// App holds the long-lived components for one process.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	store      *db.Store
	tools      *tools.Registry
	dispatcher *dispatch.Dispatcher
	engine     *sync.Engine
	oauth      *oauth2.Config
	tokens     *google.TokenStore
	googleOpts []google.Option
	model      session.ModelClient

	mu            stdsync.Mutex
	registries    map[uuid.UUID]*provider.Registry
	sessions      map[uuid.UUID]*session.Session
	confirmations map[uuid.UUID]*dispatch.Confirmations
	charm         *charm.Client
	charmTried    bool
}

// New opens the cache store and builds the shared components.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:        cfg,
		Log:           log,
		registries:    make(map[uuid.UUID]*provider.Registry),
		sessions:      make(map[uuid.UUID]*session.Session),
		confirmations: make(map[uuid.UUID]*dispatch.Confirmations),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache store: %w", err)
		}
		a.store = store
	}

	a.tools = tools.Default()
	a.dispatcher = dispatch.New(a.tools,
		dispatch.WithPolicy(dispatch.ParsePolicy(cfg.Confirmation)),
		dispatch.WithLogger(log.With().Str("component", "dispatch").Logger()),
	)
	if err := a.dispatcher.Verify(); err != nil {
		return nil, fmt.Errorf("tool registry and command table disagree: %w", err)
	}

	a.oauth = google.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	a.tokens = google.NewTokenStore(cfg.TokenDir)
	a.engine = sync.NewEngine(a.store, a, sync.Config{
		Workers:    cfg.SyncWorkers,
		MailWindow: cfg.MailWindow,
		Logger:     log.With().Str("component", "sync").Logger(),
	})
	return a, nil
}

// Close releases the cache store.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) Store() *db.Store                 { return a.store }
func (a *App) Tools() *tools.Registry           { return a.tools }
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.dispatcher }
func (a *App) Engine() *sync.Engine             { return a.engine }
func (a *App) OAuth() *oauth2.Config            { return a.oauth }
func (a *App) Tokens() *google.TokenStore       { return a.tokens }

// CapabilityMap returns the user's bindings over the defaults.
func (a *App) CapabilityMap(ctx context.Context, userID uuid.UUID) (provider.CapabilityMap, error) {
	m := provider.DefaultCapabilityMap()
	bindings, err := a.store.CapabilityBindings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load capability bindings: %w", err)
	}
	for c, id := range bindings {
		m[c] = id
	}
	return m, nil
}

// Bind changes one capability binding and drops the user's cached session.
func (a *App) Bind(ctx context.Context, userID uuid.UUID, c models.Capability, providerID string) error {
	reg := a.Registry(userID)
	p, ok := reg.Get(providerID)
	if !ok {
		return fmt.Errorf("unknown provider %q (available: %v)", providerID, reg.IDs())
	}
	if !provider.Implements(p, c) {
		return fmt.Errorf("provider %q does not serve %s", providerID, c)
	}
	if err := a.store.SetCapabilityBinding(ctx, userID, c, providerID); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.sessions, userID)
	a.mu.Unlock()
	return nil
}

// Registry returns the user's provider registry, creating it on first use.
func (a *App) Registry(userID uuid.UUID) *provider.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()

	if reg, ok := a.registries[userID]; ok {
		return reg
	}
	reg := provider.NewRegistry(
		google.New(userID, a.oauth, a.tokens, a.googleOpts...),
		replica.New(a.store, userID),
		provider.NewUnsupported(provider.MicrosoftID),
		provider.NewUnsupported(provider.AppleID),
	)
	if c := a.charmClient(); c != nil {
		reg.Register(charm.NewProvider(c, userID))
	}
	a.registries[userID] = reg
	return reg
}

// charmClient opens the Charm KV once. Callers hold a.mu.
func (a *App) charmClient() *charm.Client {
	if a.charmTried {
		return a.charm
	}
	a.charmTried = true

	cfg, err := charm.LoadConfig()
	if err != nil {
		a.Log.Warn().Err(err).Msg("charm config unavailable, charm notes disabled")
		return nil
	}
	c, err := charm.NewClient(cfg)
	if err != nil {
		a.Log.Warn().Err(err).Msg("charm kv unavailable, charm notes disabled")
		return nil
	}
	a.charm = c
	return c
}

// CharmClient returns the Charm client, or nil when it cannot be opened.
func (a *App) CharmClient() *charm.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.charmClient()
}

// SourceFor resolves the sync source for a user's capability.
func (a *App) SourceFor(ctx context.Context, userID uuid.UUID, c models.Capability) (provider.Provider, error) {
	m, err := a.CapabilityMap(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sync.StaticSource{Registry: a.Registry(userID), Map: m}.SourceFor(ctx, userID, c)
}

// Turn builds dispatch context for a stateless caller such as MCP or HTTP.
func (a *App) Turn(ctx context.Context, userID uuid.UUID, prompt string) (dispatch.Turn, error) {
	m, err := a.CapabilityMap(ctx, userID)
	if err != nil {
		return dispatch.Turn{}, err
	}

	return dispatch.Turn{
		UserID:         userID,
		Map:            m,
		Registry:       a.Registry(userID),
		OriginalPrompt: prompt,
		Confirmations:  a.confirmationsFor(userID),
	}, nil
}

// confirmationsFor returns the user's pending confirmations. Chat sessions and
// direct tool calls share one store so a token from either can be redeemed by both.
func (a *App) confirmationsFor(userID uuid.UUID) *dispatch.Confirmations {
	a.mu.Lock()
	defer a.mu.Unlock()
	conf, ok := a.confirmations[userID]
	if !ok {
		conf = dispatch.NewConfirmations()
		a.confirmations[userID] = conf
	}
	return conf
}

// Session returns the user's conversation, creating it on first use.
func (a *App) Session(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	a.mu.Lock()
	s, ok := a.sessions[userID]
	a.mu.Unlock()
	if ok {
		return s, nil
	}

	model, err := a.modelClient(ctx)
	if err != nil {
		return nil, err
	}
	m, err := a.CapabilityMap(ctx, userID)
	if err != nil {
		return nil, err
	}

	s = session.New(userID, model, a.dispatcher, a.Registry(userID), m, session.Config{
		MaxHistory:    a.Config.MaxHistory,
		ToolTimeout:   a.Config.ToolTimeout,
		Logger:        a.Log.With().Str("component", "session").Logger(),
		Confirmations: a.confirmationsFor(userID),
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.sessions[userID]; ok {
		return existing, nil
	}
	a.sessions[userID] = s
	return s, nil
}

func (a *App) modelClient(ctx context.Context) (session.ModelClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.model != nil {
		return a.model, nil
	}
	if a.Config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	g, err := session.NewGemini(ctx, session.GeminiConfig{
		APIKey:     a.Config.GeminiAPIKey,
		Model:      a.Config.Model,
		BaseURL:    a.Config.ModelBaseURL,
		MaxRetries: a.Config.ModelRetries,
	})
	if err != nil {
		return nil, err
	}
	a.model = g
	return g, nil
}
