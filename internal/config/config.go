// Package config provides configuration types and helpers for advisor.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the application-wide configuration.
type Config struct {
	Verbose   bool             `mapstructure:"verbose"`
	Debug     bool             `mapstructure:"debug"`
	Format    string           `mapstructure:"format"`
	Providers []ProviderConfig `mapstructure:"providers"`
	Session   SessionConfig    `mapstructure:"session"`
}

// ProviderConfig describes one chat-completion endpoint. Providers are tried
// in the order they appear in the config file.
type ProviderConfig struct {
	ID       string `mapstructure:"id"`
	Kind     string `mapstructure:"kind"`     // "openai" (default) or "ollama"
	Endpoint string `mapstructure:"endpoint"` // full chat completions URL
	APIKey   string `mapstructure:"api_key"`  // Optional: read from APIKeyEnv if empty
	// APIKeyEnv names the environment variable holding the token.
	APIKeyEnv string `mapstructure:"api_key_env"`
	Model     string `mapstructure:"model"`
	// RequireModel sends the model field in the request body. Some
	// providers reject requests without it, others ignore it.
	RequireModel bool           `mapstructure:"require_model"`
	Timeout      time.Duration  `mapstructure:"timeout"`
	ErrorHints   map[int]string `mapstructure:"error_hints"`
}

// SessionConfig holds the conversation defaults.
type SessionConfig struct {
	Language      string `mapstructure:"language"`  // BCP 47 tag, e.g. "en" or "zh-CN"
	Verbosity     string `mapstructure:"verbosity"` // "detailed" or "concise"
	Context       bool   `mapstructure:"context"`
	Stream        bool   `mapstructure:"stream"`
	HistoryRetain int    `mapstructure:"history_retain"`
	HistoryWindow int    `mapstructure:"history_window"`

	// RequestsPerMinute caps outbound sends. Zero disables the limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`

	// LazyProbeTTL enables probing on send when no check has succeeded.
	// Zero keeps the explicit check contract.
	LazyProbeTTL time.Duration `mapstructure:"lazy_probe_ttl"`
}

// Provider kinds.
const (
	KindOpenAI = "openai"
	KindOllama = "ollama"
)

// ErrNoProviders is returned by Validate when no provider is configured.
var ErrNoProviders = errors.New("no providers configured")

// Validate checks the provider list and session settings.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return ErrNoProviders
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("providers[%d]: id is required", i)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("providers[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}

		if p.Endpoint == "" {
			return fmt.Errorf("provider %s: endpoint is required", p.ID)
		}
		switch strings.ToLower(p.Kind) {
		case "", KindOpenAI, KindOllama:
		default:
			return fmt.Errorf("provider %s: unknown kind %q (supported: openai, ollama)", p.ID, p.Kind)
		}
		if p.RequireModel && p.Model == "" {
			return fmt.Errorf("provider %s: model is required when require_model is set", p.ID)
		}
	}

	switch strings.ToLower(c.Session.Verbosity) {
	case "", "detailed", "concise":
	default:
		return fmt.Errorf("session.verbosity must be detailed or concise, got %q", c.Session.Verbosity)
	}

	if c.Session.HistoryRetain < 0 || c.Session.HistoryWindow < 0 {
		return errors.New("session history limits cannot be negative")
	}

	return nil
}
