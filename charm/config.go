// ABOUTME: Charm link settings for the notes backend, read from the user's XDG config dir
// ABOUTME: Named settings can be changed from the CLI and are validated before saving
package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
)

// AppName is the Charm KV database name for notes.
const AppName = "deskhand"

// DefaultCharmHost is where notes replicate unless the user points elsewhere.
const DefaultCharmHost = "charm.2389.dev"

const settingsFile = "deskhand/charm.json"

// Setting names accepted by Config.Set.
const (
	SettingHost     = "host"
	SettingAutoSync = "auto-sync"
)

// Config is the Charm link for one machine.
type Config struct {
	Host string `json:"host"`
	// AutoSync replicates after every note write and when the store opens.
	AutoSync bool `json:"auto_sync"`

	path string
}

// DefaultConfig links to the shared host with replication on.
func DefaultConfig() *Config {
	return &Config{Host: DefaultCharmHost, AutoSync: true}
}

// LoadConfig reads settings from the XDG config dir. A missing file yields
// defaults that Save will write back to the same place.
func LoadConfig() (*Config, error) {
	path, err := xdg.ConfigFile(settingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve charm settings path: %w", err)
	}
	return LoadConfigFrom(path)
}

// LoadConfigFrom reads settings from path.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read charm settings: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse charm settings %s: %w", path, err)
	}
	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	return cfg, nil
}

// Set changes one named setting.
func (c *Config) Set(name, value string) error {
	switch name {
	case SettingHost:
		host := strings.TrimSpace(value)
		if host == "" || strings.Contains(host, "://") || strings.ContainsAny(host, "/ ") {
			return fmt.Errorf("host must be a bare hostname, got %q", value)
		}
		c.Host = host
	case SettingAutoSync:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("auto-sync must be true or false, got %q", value)
		}
		c.AutoSync = b
	default:
		return fmt.Errorf("unknown charm setting %q (want %s or %s)", name, SettingHost, SettingAutoSync)
	}
	return nil
}

// Save writes the settings back to where they were loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("charm settings have no file; load them first")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create charm settings dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode charm settings: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write charm settings: %w", err)
	}
	return nil
}
