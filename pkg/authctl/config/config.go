// Package config loads authctl configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage backends for the persisted token set.
const (
	StorageKeychain = "keychain"
	StorageFile     = "file"
)

// Config is the environment-sourced client configuration.
type Config struct {
	// IssuerURL is the identity provider's base URL.
	IssuerURL string `env:"AUTHCTL_ISSUER_URL"`
	// ClientID is the registered public client id.
	ClientID string `env:"AUTHCTL_CLIENT_ID"`
	// Audience is an optional audience for the authorization request.
	Audience string `env:"AUTHCTL_AUDIENCE"`
	// Scopes is the space-delimited scope string.
	Scopes string `env:"AUTHCTL_SCOPES" envDefault:"openid profile email offline"`
	// CallbackPort is the fixed loopback port registered as the redirect
	// target. The exact URL http://127.0.0.1:<port>/callback must be on the
	// provider's allowlist.
	CallbackPort int `env:"AUTHCTL_CALLBACK_PORT" envDefault:"53180"`
	// TokenStorage selects the token store backend: keychain or file.
	TokenStorage string `env:"AUTHCTL_TOKEN_STORAGE" envDefault:"keychain"`
	// Debug enables verbose logging.
	Debug bool `env:"AUTHCTL_DEBUG"`
}

// ConfigError reports missing required configuration. It is fatal at
// startup and surfaced once.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// Load parses the environment and validates required fields.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Scopes = strings.TrimSpace(cfg.Scopes)

	var missing []string
	if cfg.IssuerURL == "" {
		missing = append(missing, "AUTHCTL_ISSUER_URL")
	}
	if cfg.ClientID == "" {
		missing = append(missing, "AUTHCTL_CLIENT_ID")
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	switch cfg.TokenStorage {
	case StorageKeychain, StorageFile:
	default:
		return nil, fmt.Errorf("unsupported token storage: %s", cfg.TokenStorage)
	}
	return &cfg, nil
}

// DefaultTokenPath returns the token file location used by the file storage
// backend.
func DefaultTokenPath() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, "authctl", "tokens.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".authctl", "tokens.json")
}
