// Package ollama provides native Ollama checks for providers that serve the
// OpenAI-compatible endpoint from an Ollama server.
//
// Chat traffic still goes through the compatible endpoint; this package only
// answers questions the compatible API cannot: is the server up, and has
// the model been pulled.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// Client wraps the Ollama API client.
type Client struct {
	client *api.Client
	config Config
	logger *slog.Logger
}

// Config holds Ollama-specific configuration.
type Config struct {
	// Host is the Ollama API root (e.g., "http://localhost:11434")
	Host string

	// Model is the model the provider expects to be pulled
	Model string

	// HTTPClient is used for API calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Model describes one locally available model.
type Model struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// ErrUnavailable indicates the Ollama server is not reachable.
var ErrUnavailable = errors.New("ollama server is not reachable")

// New creates a new Ollama client.
// If cfg.Host is empty, it uses the OLLAMA_HOST environment variable or defaults to http://localhost:11434.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			logger.Error("failed to create ollama client from environment", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Debug("created ollama client from environment")
		return &Client{client: client, config: cfg, logger: logger}, nil
	}

	parsedURL, err := url.Parse(cfg.Host)
	if err != nil {
		logger.Error("invalid ollama host URL", "host", cfg.Host, "error", err)
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger.Debug("created ollama client with explicit host", "host", cfg.Host)

	return &Client{
		client: api.NewClient(parsedURL, httpClient),
		config: cfg,
		logger: logger,
	}, nil
}

// Heartbeat checks if the Ollama service is reachable and healthy.
func (c *Client) Heartbeat(ctx context.Context) error {
	c.logger.Debug("checking ollama heartbeat", "host", c.config.Host)

	if err := c.client.Heartbeat(ctx); err != nil {
		c.logger.Warn("ollama heartbeat failed", "host", c.config.Host, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("ollama heartbeat successful")
	return nil
}

// ModelAvailable checks if a specific model is available (i.e., has been pulled).
func (c *Client) ModelAvailable(ctx context.Context, model string) (bool, error) {
	c.logger.Debug("checking model availability", "model", model)

	listResp, err := c.client.List(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, m := range listResp.Models {
		if m.Name == model || m.Model == model {
			return true, nil
		}
	}

	c.logger.Debug("model not found", "model", model, "available_count", len(listResp.Models))
	return false, nil
}

// ListModels returns the models pulled on the server.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	listResp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	models := make([]Model, 0, len(listResp.Models))
	for _, m := range listResp.Models {
		models = append(models, Model{
			Name:       m.Name,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		})
	}
	return models, nil
}
