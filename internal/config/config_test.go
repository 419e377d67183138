package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Providers: []ProviderConfig{
			{ID: "primary", Endpoint: "https://primary.example/v1/chat/completions"},
			{ID: "backup", Kind: "openai", Endpoint: "https://backup.example/v1/chat/completions", Model: "chat", RequireModel: true},
		},
		Session: SessionConfig{Language: "en", Verbosity: "detailed"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "no providers",
			mutate:  func(c *Config) { c.Providers = nil },
			wantErr: "no providers",
		},
		{
			name:    "missing id",
			mutate:  func(c *Config) { c.Providers[0].ID = "" },
			wantErr: "id is required",
		},
		{
			name:    "duplicate id",
			mutate:  func(c *Config) { c.Providers[1].ID = "primary" },
			wantErr: "duplicate id",
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Providers[1].Endpoint = "" },
			wantErr: "endpoint is required",
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Providers[0].Kind = "gemini" },
			wantErr: "unknown kind",
		},
		{
			name:   "ollama kind",
			mutate: func(c *Config) { c.Providers[0].Kind = "Ollama" },
		},
		{
			name:    "require model without model",
			mutate:  func(c *Config) { c.Providers[1].Model = "" },
			wantErr: "model is required",
		},
		{
			name:    "bad verbosity",
			mutate:  func(c *Config) { c.Session.Verbosity = "chatty" },
			wantErr: "verbosity",
		},
		{
			name:    "negative history",
			mutate:  func(c *Config) { c.Session.HistoryRetain = -1 },
			wantErr: "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNoProvidersSentinel(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Validate() error = %v, want ErrNoProviders", err)
	}
}
