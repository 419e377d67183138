package llm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bimmerbailey/advisor/internal/config"
)

// defaultTimeout bounds the wait for response headers when the provider
// config sets none.
const defaultTimeout = 2 * time.Minute

// resolveAPIKey checks config first, then falls back to environment variable.
// Returns empty string if neither is set.
func resolveAPIKey(configKey, envVarName string) string {
	if configKey != "" {
		return configKey
	}
	if envVarName == "" {
		return ""
	}
	return os.Getenv(envVarName)
}

// NewProviders builds the ordered provider list from configuration.
// Order is preserved: the first entry is the primary provider.
func NewProviders(cfg *config.Config) ([]ProviderConfig, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers := make([]ProviderConfig, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		kind := strings.ToLower(pc.Kind)
		if kind == "" {
			kind = config.KindOpenAI
		}

		token := resolveAPIKey(pc.APIKey, pc.APIKeyEnv)
		if token == "" && kind != config.KindOllama {
			return nil, fmt.Errorf(
				"provider %s: api key not configured: set api_key or api_key_env in config", pc.ID,
			)
		}

		timeout := pc.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}

		hints := make(map[int]string, len(pc.ErrorHints))
		for code, hint := range pc.ErrorHints {
			hints[code] = hint
		}

		providers = append(providers, ProviderConfig{
			ID:           pc.ID,
			Kind:         kind,
			Endpoint:     pc.Endpoint,
			Token:        token,
			Model:        pc.Model,
			RequireModel: pc.RequireModel,
			ErrorHints:   hints,
			Timeout:      timeout,
		})
	}

	return providers, nil
}
