package prompt

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknownLanguage is returned by [ParseLanguage] for tags that are not
// well-formed BCP 47.
var ErrUnknownLanguage = errors.New("prompt: unknown language")

// ParseLanguage parses a BCP 47 tag such as "en", "zh-CN" or "pt-BR".
// Underscores are accepted as separators.
func ParseLanguage(s string) (language.Tag, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" {
		return language.Und, fmt.Errorf("%w: empty tag", ErrUnknownLanguage)
	}

	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("%w: %q: %v", ErrUnknownLanguage, s, err)
	}
	if tag == language.Und {
		return language.Und, fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
	}
	return tag, nil
}

// LanguageName renders a tag for humans, e.g. "Chinese (中文)" or "English".
func LanguageName(tag language.Tag) string {
	english := display.English.Languages().Name(tag)
	self := display.Self.Name(tag)

	switch {
	case english == "":
		return tag.String()
	case self == "" || self == english:
		return english
	default:
		return english + " (" + self + ")"
	}
}
