package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Message roles accepted by chat-completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	// Role identifies the message sender: "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ProviderConfig describes one chat-completion endpoint.
// Values are immutable once built by NewProviders.
type ProviderConfig struct {
	// ID names the provider in logs and errors (e.g. "primary").
	ID string

	// Kind is "openai" for plain OpenAI-compatible endpoints or "ollama"
	// for an Ollama server exposing the compatible endpoint.
	Kind string

	// Endpoint is the full chat completions URL.
	Endpoint string

	// Token is sent as a bearer token.
	Token string

	// Model is sent in the request body only when RequireModel is set.
	Model        string
	RequireModel bool

	// ErrorHints maps HTTP status codes to a human-readable hint that is
	// attached to ProviderError.
	ErrorHints map[int]string

	// Timeout bounds the wait for response headers. It does not limit how
	// long a 200 body takes to read; that is left to the caller's context.
	// Zero means no header timeout.
	Timeout time.Duration
}

// IncrementFunc receives each non-empty text fragment extracted from a
// stream together with the text accumulated so far, fragment included.
type IncrementFunc func(fragment, accumulated string)

// Common errors returned by the gateway.
var (
	// ErrProviderUnavailable indicates the provider could not be reached or
	// did not answer the health probe correctly.
	ErrProviderUnavailable = errors.New("llm provider is not reachable")

	// ErrInvalidResponse indicates the provider returned an invalid response
	ErrInvalidResponse = errors.New("provider returned invalid response")

	// ErrModelNotFound indicates an ollama provider does not have the model pulled
	ErrModelNotFound = errors.New("requested model is not available")
)

// ProviderError reports a non-200 answer or a transport failure from one
// provider. StatusCode is zero when no HTTP response was received.
type ProviderError struct {
	ProviderID string
	StatusCode int
	Body       string
	Hint       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider %s: request failed: %v", e.ProviderID, e.Err)
	}
	msg := fmt.Sprintf("provider %s: status %d %s", e.ProviderID, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StreamDecodeError reports a failure while reading or parsing a response
// body after the provider answered 200.
type StreamDecodeError struct {
	ProviderID string
	Err        error
}

func (e *StreamDecodeError) Error() string {
	return fmt.Sprintf("provider %s: decode response: %v", e.ProviderID, e.Err)
}

func (e *StreamDecodeError) Unwrap() error {
	return e.Err
}
