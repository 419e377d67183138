package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bimmerbailey/advisor/internal/config"
	"github.com/bimmerbailey/advisor/internal/llm/ollama"
)

// maxErrorBodySize caps how much of a non-200 body is kept for ProviderError.
const maxErrorBodySize = 64 * 1024

// maxResponseBodySize caps single-shot and probe bodies.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// probeContent is the single user message sent by Probe.
const probeContent = "Hello"

// defaultErrorHints apply when a provider config has no hint for a status.
var defaultErrorHints = map[int]string{
	http.StatusUnauthorized:    "check API key",
	http.StatusForbidden:       "check API key permissions",
	http.StatusNotFound:        "check endpoint URL",
	http.StatusTooManyRequests: "rate limit exceeded",
}

// Gateway formats provider-specific chat requests and classifies their outcome.
// It never retries; failover is the caller's decision.
// Gateway is safe for concurrent use.
type Gateway struct {
	client *http.Client
	logger *slog.Logger
}

// NewGateway creates a Gateway. A nil client uses a client without an overall
// timeout so long streams are not cut; per-provider header timeouts still apply.
func NewGateway(client *http.Client, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Gateway{client: client, logger: logger}, nil
}

type chatRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Send posts messages to the provider. On HTTP 200 the response is returned
// with its body unread; the caller must close it. Any other status is
// returned as *ProviderError after the body has been read and closed.
func (g *Gateway) Send(ctx context.Context, p ProviderConfig, messages []Message, stream bool) (*http.Response, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	payload := chatRequest{Messages: messages, Stream: stream}
	if p.RequireModel {
		payload.Model = p.Model
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Timeout covers only the wait for response headers. Once a 200 arrives
	// the body may stream for as long as the caller's ctx allows.
	reqCtx, cancel := context.WithCancel(ctx)
	var timer *time.Timer
	if p.Timeout > 0 {
		timer = time.AfterFunc(p.Timeout, cancel)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, &ProviderError{ProviderID: p.ID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	g.logger.Debug("sending chat request",
		"provider", p.ID,
		"messages", len(messages),
		"stream", stream,
	)

	resp, err := g.client.Do(req)
	if timer != nil && !timer.Stop() && ctx.Err() == nil {
		// The header timer fired, so reqCtx is already canceled.
		if err == nil {
			resp.Body.Close()
		}
		cancel()
		err = fmt.Errorf("no response within %s: %w", p.Timeout, context.DeadlineExceeded)
		g.logger.Warn("chat request timed out", "provider", p.ID, "timeout", p.Timeout)
		return nil, &ProviderError{ProviderID: p.ID, Err: err}
	}
	if err != nil {
		cancel()
		g.logger.Warn("chat request failed", "provider", p.ID, "error", err)
		return nil, &ProviderError{ProviderID: p.ID, Err: err}
	}

	g.logger.Debug("chat response received", "provider", p.ID, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		return nil, statusError(p, resp)
	}

	// The request context must outlive Send because the body is read later.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Probe checks that the provider answers a minimal non-streaming request with
// HTTP 200 and a non-empty choices array. Ollama providers are first checked
// with the native API so an unreachable server or missing model costs nothing.
func (g *Gateway) Probe(ctx context.Context, p ProviderConfig) error {
	if strings.EqualFold(p.Kind, config.KindOllama) {
		if err := g.ollamaPrecheck(ctx, p); err != nil {
			return err
		}
	}

	resp, err := g.Send(ctx, p, []Message{{Role: RoleUser, Content: probeContent}}, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Choices []json.RawMessage `json:"choices"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&result); err != nil {
		return fmt.Errorf("provider %s: %w: %v", p.ID, ErrInvalidResponse, err)
	}
	if len(result.Choices) == 0 {
		return fmt.Errorf("provider %s: %w: no choices", p.ID, ErrInvalidResponse)
	}
	return nil
}

func (g *Gateway) ollamaPrecheck(ctx context.Context, p ProviderConfig) error {
	host, err := OllamaHost(p.Endpoint)
	if err != nil {
		return &ProviderError{ProviderID: p.ID, Err: err}
	}

	client, err := ollama.New(ollama.Config{Host: host, Model: p.Model, HTTPClient: g.client}, g.logger)
	if err != nil {
		return &ProviderError{ProviderID: p.ID, Err: err}
	}

	if err := client.Heartbeat(ctx); err != nil {
		return &ProviderError{ProviderID: p.ID, Err: err}
	}

	if p.Model == "" {
		return nil
	}

	ok, err := client.ModelAvailable(ctx, p.Model)
	if err != nil {
		return &ProviderError{ProviderID: p.ID, Err: err}
	}
	if !ok {
		return &ProviderError{ProviderID: p.ID, Err: fmt.Errorf("%w: %s (run: ollama pull %s)", ErrModelNotFound, p.Model, p.Model)}
	}
	return nil
}

// OllamaHost derives the Ollama server root from a chat endpoint such as
// http://localhost:11434/v1/chat/completions.
func OllamaHost(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing scheme or host", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}

// statusError reads the error body, keeping it as compact JSON when it
// parses and as trimmed text otherwise.
func statusError(p ProviderConfig, resp *http.Response) *ProviderError {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	pe := &ProviderError{
		ProviderID: p.ID,
		StatusCode: resp.StatusCode,
		Body:       errorBody(raw),
		Hint:       p.ErrorHints[resp.StatusCode],
	}
	if pe.Hint == "" {
		pe.Hint = defaultErrorHints[resp.StatusCode]
	}
	if err != nil {
		pe.Err = err
	}
	return pe
}

func errorBody(raw []byte) string {
	var buf bytes.Buffer
	if json.Valid(raw) && json.Compact(&buf, raw) == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(raw))
}

// cancelOnClose releases the request context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
