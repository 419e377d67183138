package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/bimmerbailey/advisor/internal/config"
	"github.com/bimmerbailey/advisor/internal/llm"
	"github.com/bimmerbailey/advisor/internal/session"
)

const providerHelp = `

Troubleshooting:
- Check the providers list in ~/.advisor.yaml
- Set the provider tokens, e.g. ADVISOR_PRIMARY_API_KEY and DEEPSEEK_API_KEY (a .env file works)
- For ollama providers, ensure the server is running: ollama serve`

// loadConfig unmarshals the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// newSession builds the provider list and a session over the HTTP gateway.
func newSession(cfg *config.Config, logger *slog.Logger) (*session.Session, error) {
	providers, err := llm.NewProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure providers: %w%s", err, providerHelp)
	}

	gateway, err := llm.NewGateway(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	opts, err := session.OptionsFromConfig(cfg.Session)
	if err != nil {
		return nil, err
	}
	opts = append(opts, session.WithLogger(logger))

	return session.New(gateway, providers, opts...)
}
