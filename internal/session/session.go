// Package session implements the conversation session: it owns the
// conversation history and settings, tracks provider availability, and
// sends messages with sequential failover across the configured providers.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/bimmerbailey/advisor/internal/llm"
	"github.com/bimmerbailey/advisor/internal/prompt"
)

// maxConcurrentProbes bounds parallel health probes.
const maxConcurrentProbes = 4

// Gateway sends chat requests and health probes to one provider.
// *llm.Gateway satisfies it.
type Gateway interface {
	Send(ctx context.Context, p llm.ProviderConfig, messages []llm.Message, stream bool) (*http.Response, error)
	Probe(ctx context.Context, p llm.ProviderConfig) error
}

// Decoder turns a streamed response body into text.
// *llm.StreamDecoder satisfies it.
type Decoder interface {
	Decode(providerID string, body io.ReadCloser, onIncrement llm.IncrementFunc) (string, error)
}

// Settings are the per-session conversation preferences.
type Settings struct {
	Language       language.Tag
	Verbosity      prompt.Verbosity
	ContextEnabled bool
	StreamEnabled  bool
}

// DefaultSettings returns detailed answers in Chinese with history and
// streaming enabled.
func DefaultSettings() Settings {
	return Settings{
		Language:       prompt.DefaultLanguage,
		Verbosity:      prompt.VerbosityDetailed,
		ContextEnabled: true,
		StreamEnabled:  true,
	}
}

// Mode groups the three toggles changed together by SetMode.
type Mode struct {
	Detailed bool
	Context  bool
	Stream   bool
}

// ProviderStatus reports what the session knows about one provider.
type ProviderStatus struct {
	ID        string `json:"id"`
	Reachable bool   `json:"reachable"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
}

// Status is a snapshot of the session. Two calls with no mutation in between
// return equal values.
type Status struct {
	State         State            `json:"state"`
	Available     bool             `json:"available"`
	ProviderID    string           `json:"provider_id,omitempty"`
	Language      string           `json:"language"`
	Detailed      bool             `json:"detailed"`
	Context       bool             `json:"context"`
	Stream        bool             `json:"stream"`
	HistoryLength int              `json:"history_length"`
	Providers     []ProviderStatus `json:"providers"`
}

type providerStats struct {
	reachable bool
	successes int
	failures  int
}

// Session is a single conversation with a fixed, ordered provider list.
// All methods are safe for concurrent use; SendMessage and
// CheckAvailability calls are serialized.
type Session struct {
	gateway   Gateway
	decoder   Decoder
	providers []llm.ProviderConfig
	logger    *slog.Logger
	limiter   *rate.Limiter
	lazyTTL   time.Duration
	window    int

	// sendMu serializes network operations so history is only written by
	// one send at a time.
	sendMu sync.Mutex

	mu        sync.Mutex
	state     State
	available string
	checkedAt time.Time
	settings  Settings
	history   *History
	stats     map[string]*providerStats
}

type options struct {
	logger   *slog.Logger
	settings Settings
	retain   int
	window   int
	every    time.Duration
	burst    int
	lazyTTL  time.Duration
	decoder  Decoder
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the session logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSettings sets the initial settings. The default is DefaultSettings().
func WithSettings(s Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithHistoryLimits sets how many entries are retained and how many of the
// most recent are sent with each message.
func WithHistoryLimits(retain, window int) Option {
	return func(o *options) {
		o.retain = retain
		o.window = window
	}
}

// WithRateLimit allows one send per every, with bursts of up to burst.
// SendMessage waits for a token, so a caller deadline still applies.
func WithRateLimit(every time.Duration, burst int) Option {
	return func(o *options) {
		o.every = every
		o.burst = burst
	}
}

// WithLazyProbe makes SendMessage run the health check itself when the last
// check is missing or older than ttl. Without it, a caller must call
// CheckAvailability before sending.
func WithLazyProbe(ttl time.Duration) Option {
	return func(o *options) { o.lazyTTL = ttl }
}

// WithDecoder replaces the stream decoder.
func WithDecoder(d Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// New creates a session in the Unchecked state. Providers are tried in the
// given order.
func New(gateway Gateway, providers []llm.ProviderConfig, opts ...Option) (*Session, error) {
	if gateway == nil {
		return nil, errors.New("gateway cannot be nil")
	}
	if len(providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}

	o := options{
		settings: DefaultSettings(),
		retain:   DefaultHistoryRetain,
		window:   DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.retain < 1 || o.window < 0 {
		return nil, fmt.Errorf("%w: history retain must be positive and window non-negative (got %d, %d)",
			ErrInvalidSetting, o.retain, o.window)
	}
	if o.every < 0 || (o.every > 0 && o.burst < 1) {
		return nil, fmt.Errorf("%w: rate limit needs a positive interval and burst", ErrInvalidSetting)
	}
	if o.lazyTTL < 0 {
		return nil, fmt.Errorf("%w: lazy probe ttl cannot be negative", ErrInvalidSetting)
	}
	if o.settings.Language == language.Und {
		o.settings.Language = prompt.DefaultLanguage
	}
	if o.settings.Verbosity == "" {
		o.settings.Verbosity = prompt.VerbosityDetailed
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "session")

	decoder := o.decoder
	if decoder == nil {
		decoder = llm.NewStreamDecoder(logger)
	}

	stats := make(map[string]*providerStats, len(providers))
	for _, p := range providers {
		if _, dup := stats[p.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		stats[p.ID] = &providerStats{}
	}

	s := &Session{
		gateway:   gateway,
		decoder:   decoder,
		providers: append([]llm.ProviderConfig(nil), providers...),
		logger:    logger,
		lazyTTL:   o.lazyTTL,
		window:    o.window,
		state:     StateUnchecked,
		settings:  o.settings,
		history:   newHistory(o.retain),
		stats:     stats,
	}
	if o.every > 0 {
		s.limiter = rate.NewLimiter(rate.Every(o.every), o.burst)
	}
	return s, nil
}

// CheckAvailability probes every provider concurrently and moves the session
// to Available with the first provider, in priority order, that passed, or
// to Unavailable if none did.
func (s *Session) CheckAvailability(ctx context.Context) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.check(ctx)
}

func (s *Session) check(ctx context.Context) bool {
	s.mu.Lock()
	s.state = StateChecking
	s.mu.Unlock()

	s.logger.Info("checking provider availability", "providers", len(s.providers))

	results := make([]error, len(s.providers))
	var g errgroup.Group
	g.SetLimit(maxConcurrentProbes)
	for i, p := range s.providers {
		g.Go(func() error {
			results[i] = s.gateway.Probe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.available = ""
	for i, p := range s.providers {
		ok := results[i] == nil
		s.stats[p.ID].reachable = ok
		if ok && s.available == "" {
			s.available = p.ID
		}
		if !ok {
			s.logger.Warn("provider probe failed", "provider", p.ID, "error", results[i])
		}
	}
	s.checkedAt = time.Now()

	if s.available == "" {
		s.state = StateUnavailable
		s.logger.Warn("no provider available")
		return false
	}
	s.state = StateAvailable
	s.logger.Info("provider available", "provider", s.available)
	return true
}

// SendMessage sends text, with extraContext appended when non-empty, and
// returns the assistant's answer. When streaming is enabled onIncrement
// receives each fragment as it arrives; it may be nil.
//
// Providers are tried one after another in priority order. On success the
// user text and the answer are appended to history. On failure history is
// unchanged and the error is ErrServiceUnavailable (no provider confirmed,
// nothing sent) or *AllProvidersFailedError.
func (s *Session) SendMessage(ctx context.Context, text, extraContext string, onIncrement llm.IncrementFunc) (string, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	logger := s.logger.With("request_id", uuid.NewString())

	if err := s.ensureAvailable(ctx, logger); err != nil {
		return "", err
	}

	s.mu.Lock()
	settings := s.settings
	var window []llm.Message
	if settings.ContextEnabled {
		window = s.history.Window(s.window)
	}
	s.mu.Unlock()

	messages, err := prompt.Build(prompt.BuildOptions{
		Language:  settings.Language,
		Verbosity: settings.Verbosity,
		History:   window,
		Question:  text,
		Context:   extraContext,
	})
	if err != nil {
		return "", err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	logger.Info("sending message",
		"history", len(window),
		"stream", settings.StreamEnabled,
		"context_chars", len(extraContext),
	)

	var attempts []error
	for _, p := range s.providers {
		start := time.Now()
		answer, err := s.attempt(ctx, p, messages, settings.StreamEnabled, onIncrement)
		if err != nil {
			s.record(p.ID, false)
			attempts = append(attempts, err)
			logger.Warn("provider attempt failed", "provider", p.ID, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		s.record(p.ID, true)
		logger.Info("message answered",
			"provider", p.ID,
			"duration", time.Since(start),
			"length", len(answer),
		)

		s.mu.Lock()
		s.history.Append(
			llm.Message{Role: llm.RoleUser, Content: text},
			llm.Message{Role: llm.RoleAssistant, Content: answer},
		)
		s.mu.Unlock()
		return answer, nil
	}

	logger.Error("all providers failed", "attempts", len(attempts))
	return "", &AllProvidersFailedError{Attempts: attempts}
}

// ensureAvailable enforces the explicit-check contract, or runs the check
// itself when lazy probing is enabled and the last result has expired.
func (s *Session) ensureAvailable(ctx context.Context, logger *slog.Logger) error {
	s.mu.Lock()
	state, checkedAt := s.state, s.checkedAt
	s.mu.Unlock()

	if s.lazyTTL == 0 {
		if state != StateAvailable {
			logger.Debug("send rejected", "state", state)
			return ErrServiceUnavailable
		}
		return nil
	}

	fresh := !checkedAt.IsZero() && time.Since(checkedAt) < s.lazyTTL
	if fresh {
		if state == StateAvailable {
			return nil
		}
		return ErrServiceUnavailable
	}

	logger.Debug("running lazy availability check", "state", state)
	if !s.check(ctx) {
		return ErrServiceUnavailable
	}
	return nil
}

func (s *Session) attempt(ctx context.Context, p llm.ProviderConfig, messages []llm.Message, stream bool, onIncrement llm.IncrementFunc) (string, error) {
	resp, err := s.gateway.Send(ctx, p, messages, stream)
	if err != nil {
		return "", err
	}
	if stream {
		// Partial text from a failed stream is discarded; the next
		// provider starts over.
		answer, err := s.decoder.Decode(p.ID, resp.Body, onIncrement)
		if err != nil {
			return "", err
		}
		return answer, nil
	}
	return llm.DecodeCompletion(p.ID, resp.Body)
}

func (s *Session) record(providerID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[providerID]
	if ok {
		st.successes++
	} else {
		st.failures++
	}
}

// ClearHistory removes all conversation entries.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
	s.logger.Info("conversation history cleared")
}

// History returns a copy of the retained entries, oldest first.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Window(s.history.Len())
}

// SetLanguage sets the answer language from a BCP 47 tag.
func (s *Session) SetLanguage(tag string) error {
	lang, err := prompt.ParseLanguage(tag)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Language = lang
	s.logger.Info("language set", "language", lang.String())
	return nil
}

// SetMode sets answer verbosity, whether history is sent, and whether
// answers are streamed.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.Verbosity = prompt.VerbosityConcise
	if m.Detailed {
		s.settings.Verbosity = prompt.VerbosityDetailed
	}
	s.settings.ContextEnabled = m.Context
	s.settings.StreamEnabled = m.Stream
	s.logger.Info("mode updated", "detailed", m.Detailed, "context", m.Context, "stream", m.Stream)
}

// Settings returns the current settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Mode returns the current toggles.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Mode{
		Detailed: s.settings.Verbosity != prompt.VerbosityConcise,
		Context:  s.settings.ContextEnabled,
		Stream:   s.settings.StreamEnabled,
	}
}

// Status returns a snapshot of availability, settings and provider stats.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	providers := make([]ProviderStatus, len(s.providers))
	for i, p := range s.providers {
		st := s.stats[p.ID]
		providers[i] = ProviderStatus{
			ID:        p.ID,
			Reachable: st.reachable,
			Successes: st.successes,
			Failures:  st.failures,
		}
	}

	return Status{
		State:         s.state,
		Available:     s.state == StateAvailable,
		ProviderID:    s.available,
		Language:      s.settings.Language.String(),
		Detailed:      s.settings.Verbosity != prompt.VerbosityConcise,
		Context:       s.settings.ContextEnabled,
		Stream:        s.settings.StreamEnabled,
		HistoryLength: s.history.Len(),
		Providers:     providers,
	}
}
