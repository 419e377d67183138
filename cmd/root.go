package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "A college admissions advisor in your terminal",
	Long: `Advisor is a chat client for an AI college admissions advisor.

It streams answers from an OpenAI-compatible chat provider and fails over
to the next configured provider when one is down. Providers are checked
explicitly before the first message so no request is spent unexpectedly.

Examples:
  advisor chat
  advisor ask "Which UK universities are strong in chemistry?"
  advisor ask --context "GPA 3.8, SAT 1450" "Am I competitive for UCLA?"
  advisor check --format table
  advisor models`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.advisor.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto, always, never)")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
}

func initConfig() {
	// API keys usually live in .env next to the project; a missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Error loading .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".advisor")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ADVISOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// setDefaults registers the built-in configuration. The default providers
// read their tokens from ADVISOR_PRIMARY_API_KEY and DEEPSEEK_API_KEY.
func setDefaults() {
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("debug", false)
	viper.SetDefault("color", "auto")
	viper.SetDefault("markdown_style", "")

	viper.SetDefault("providers", []map[string]interface{}{
		{
			"id":          "primary",
			"kind":        "openai",
			"endpoint":    "https://portal.2brain.ai/api/bot/chat/v1/chat/completions",
			"api_key_env": "ADVISOR_PRIMARY_API_KEY",
			"timeout":     "2m",
		},
		{
			"id":            "deepseek",
			"kind":          "openai",
			"endpoint":      "https://api.deepseek.com/v1/chat/completions",
			"api_key_env":   "DEEPSEEK_API_KEY",
			"model":         "deepseek-chat",
			"require_model": true,
			"timeout":       "2m",
			"error_hints": map[string]string{
				"402": "insufficient balance",
			},
		},
	})

	viper.SetDefault("session.language", "zh-CN")
	viper.SetDefault("session.verbosity", "detailed")
	viper.SetDefault("session.context", true)
	viper.SetDefault("session.stream", true)
	viper.SetDefault("session.history_retain", 20)
	viper.SetDefault("session.history_window", 10)
	viper.SetDefault("session.requests_per_minute", 0)
	viper.SetDefault("session.lazy_probe_ttl", "0s")
}

// newLogger returns the stderr logger: errors only by default, info with
// --verbose and debug with --debug.
func newLogger() *slog.Logger {
	level := slog.LevelError
	switch {
	case viper.GetBool("debug"):
		level = slog.LevelDebug
	case viper.GetBool("verbose"):
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
