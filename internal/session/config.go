package session

import (
	"fmt"
	"time"

	"github.com/bimmerbailey/advisor/internal/config"
	"github.com/bimmerbailey/advisor/internal/prompt"
)

// SettingsFromConfig converts configured defaults into Settings. Empty
// language and verbosity fall back to DefaultSettings.
func SettingsFromConfig(sc config.SessionConfig) (Settings, error) {
	s := DefaultSettings()
	s.ContextEnabled = sc.Context
	s.StreamEnabled = sc.Stream

	if sc.Language != "" {
		lang, err := prompt.ParseLanguage(sc.Language)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: session.language: %w", ErrInvalidSetting, err)
		}
		s.Language = lang
	}
	if sc.Verbosity != "" {
		v, err := prompt.ParseVerbosity(sc.Verbosity)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: session.verbosity: %w", ErrInvalidSetting, err)
		}
		s.Verbosity = v
	}
	return s, nil
}

// OptionsFromConfig returns the options described by the session section of
// the config file. Zero history limits keep the defaults.
func OptionsFromConfig(sc config.SessionConfig) ([]Option, error) {
	settings, err := SettingsFromConfig(sc)
	if err != nil {
		return nil, err
	}

	retain, window := sc.HistoryRetain, sc.HistoryWindow
	if retain == 0 {
		retain = DefaultHistoryRetain
	}
	if window == 0 {
		window = DefaultHistoryWindow
	}

	opts := []Option{
		WithSettings(settings),
		WithHistoryLimits(retain, window),
	}
	if sc.RequestsPerMinute > 0 {
		opts = append(opts, WithRateLimit(time.Minute/time.Duration(sc.RequestsPerMinute), 1))
	}
	if sc.LazyProbeTTL > 0 {
		opts = append(opts, WithLazyProbe(sc.LazyProbeTTL))
	}
	return opts, nil
}
