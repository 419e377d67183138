package prompt

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/bimmerbailey/advisor/internal/llm"
)

// Verbosity selects how long and thorough the advisor's answers should be.
type Verbosity string

const (
	// VerbosityDetailed asks for thorough, sectioned answers. It is the default.
	VerbosityDetailed Verbosity = "detailed"

	// VerbosityConcise asks for short, direct answers.
	VerbosityConcise Verbosity = "concise"
)

// DefaultLanguage is used when no language has been configured.
var DefaultLanguage = language.MustParse("zh-CN")

// BuildOptions holds everything needed to build the outgoing message list.
type BuildOptions struct {
	// Language is the language the advisor must answer in.
	// Zero value (language.Und) falls back to DefaultLanguage.
	Language language.Tag

	// Verbosity selects the answer style. Empty means VerbosityDetailed.
	Verbosity Verbosity

	// History holds prior turns, oldest first. The caller decides how many
	// turns to include; Build copies them as given.
	History []llm.Message

	// Question is the user's new message. Required.
	Question string

	// Context is optional supporting text (e.g. a transcript or a list of
	// target schools) appended to the outgoing user message under a
	// "Context:" heading.
	Context string
}

// ErrMissingField is returned by [Build] when a required field of
// [BuildOptions] is empty.
var ErrMissingField = errors.New("prompt: missing required field")

// ErrUnknownVerbosity is returned by [ParseVerbosity] for unrecognized values.
var ErrUnknownVerbosity = errors.New("prompt: unknown verbosity")

func missingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// ParseVerbosity maps "detailed" or "concise" (case-insensitive) to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch Verbosity(strings.ToLower(strings.TrimSpace(s))) {
	case VerbosityDetailed:
		return VerbosityDetailed, nil
	case VerbosityConcise:
		return VerbosityConcise, nil
	default:
		return "", fmt.Errorf("%w: %q (want detailed or concise)", ErrUnknownVerbosity, s)
	}
}
