// ABOUTME: Runtime configuration from .env files and DESKHAND_* environment variables
// ABOUTME: Supplies XDG defaults for the cache database, token directory and local user id
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "DESKHAND"

// AppName names the XDG data directory.
const AppName = "deskhand"

// Config holds runtime settings. Tagged names are also read without the
// prefix, so GOOGLE_CLIENT_ID works as well as DESKHAND_GOOGLE_CLIENT_ID.
type Config struct {
	// DatabaseURL is a SQLite path or a postgres:// URL.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	TokenDir    string `envconfig:"TOKEN_DIR"`
	UserID      string `envconfig:"USER_ID"`

	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL" default:"http://localhost:8080/oauth/callback"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	Model        string `envconfig:"MODEL" default:"gemini-2.0-flash"`
	ModelBaseURL string `envconfig:"MODEL_BASE_URL"`
	ModelRetries uint64 `envconfig:"MODEL_RETRIES" default:"0"`

	SyncWorkers  int    `envconfig:"SYNC_WORKERS" default:"3"`
	SyncSchedule string `envconfig:"SYNC_SCHEDULE" default:"@every 15m"`
	MailWindow   int    `envconfig:"SYNC_MAIL_WINDOW" default:"50"`

	MaxHistory   int           `envconfig:"MAX_HISTORY" default:"20"`
	ToolTimeout  time.Duration `envconfig:"TOOL_TIMEOUT" default:"30s"`
	Confirmation string        `envconfig:"CONFIRMATION" default:"convention"`

	Proxies        []string      `envconfig:"PROXIES"`
	NetcheckCutoff time.Duration `envconfig:"NETCHECK_CUTOFF" default:"15s"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// DataDir returns the XDG data directory for deskhand.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultDatabasePath returns the XDG-compliant cache database path.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), "cache.db")
}

// Load reads .env files (missing files are ignored) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = DefaultDatabasePath()
	}
	c.Confirmation = strings.ToLower(strings.TrimSpace(c.Confirmation))
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.SyncWorkers < 1 {
		return fmt.Errorf("SYNC_WORKERS must be at least 1, got %d", c.SyncWorkers)
	}
	if c.MaxHistory < 2 {
		return fmt.Errorf("MAX_HISTORY must be at least 2, got %d", c.MaxHistory)
	}
	if c.MailWindow < 1 {
		return fmt.Errorf("SYNC_MAIL_WINDOW must be at least 1, got %d", c.MailWindow)
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("TOOL_TIMEOUT must be positive, got %s", c.ToolTimeout)
	}
	switch c.Confirmation {
	case "convention", "explicit":
	default:
		return fmt.Errorf("CONFIRMATION must be convention or explicit, got %q", c.Confirmation)
	}
	if c.UserID != "" {
		if _, err := uuid.Parse(c.UserID); err != nil {
			return fmt.Errorf("USER_ID is not a uuid: %w", err)
		}
	}
	return nil
}

// HasGoogleCredentials reports whether OAuth client credentials are set.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// userIDPath is where the local user id is kept when USER_ID is unset.
func userIDPath() string {
	return filepath.Join(DataDir(), "user-id")
}

// ResolveUserID returns USER_ID, or a local id created on first use.
func (c *Config) ResolveUserID() (uuid.UUID, error) {
	if c.UserID != "" {
		return uuid.Parse(c.UserID)
	}

	path := userIDPath()
	data, err := os.ReadFile(path)
	if err == nil {
		id, perr := uuid.Parse(strings.TrimSpace(string(data)))
		if perr != nil {
			return uuid.Nil, fmt.Errorf("failed to parse %s: %w", path, perr)
		}
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return uuid.Nil, fmt.Errorf("failed to read user id: %w", err)
	}

	id := uuid.New()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id.String()+"\n"), 0600); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write user id: %w", err)
	}
	return id, nil
}
