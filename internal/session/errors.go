package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrServiceUnavailable is returned by SendMessage when no provider has been
// confirmed reachable. No network call is made.
var ErrServiceUnavailable = errors.New("service unavailable: no provider confirmed reachable, run a health check first")

// ErrInvalidSetting is returned for rejected settings and options.
var ErrInvalidSetting = errors.New("invalid setting")

// AllProvidersFailedError reports that every provider was tried and failed.
// Attempts holds one error per provider, in the order they were tried; each
// is an *llm.ProviderError, an *llm.StreamDecodeError or a context error.
type AllProvidersFailedError struct {
	Attempts []error
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed"
	}
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("all %d providers failed: %s", len(e.Attempts), strings.Join(msgs, "; "))
}

func (e *AllProvidersFailedError) Unwrap() []error {
	return e.Attempts
}
