package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/advisor/internal/config"
	"github.com/bimmerbailey/advisor/internal/llm"
	"github.com/bimmerbailey/advisor/internal/llm/ollama"
	"github.com/bimmerbailey/advisor/internal/output"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models pulled on configured ollama providers",
	Long: `List the models available on every provider with kind "ollama".

OpenAI-compatible cloud providers do not expose a model listing and are
skipped.

Examples:
  advisor models
  advisor models --format table`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	format := output.ParseFormat(viper.GetString("format"))
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []output.ModelRow
	found := false
	for _, p := range cfg.Providers {
		if strings.ToLower(p.Kind) != config.KindOllama {
			continue
		}
		found = true

		host, err := llm.OllamaHost(p.Endpoint)
		if err != nil {
			return fmt.Errorf("provider %s: %w", p.ID, err)
		}
		client, err := ollama.New(ollama.Config{Host: host, Model: p.Model}, logger)
		if err != nil {
			return fmt.Errorf("provider %s: %w", p.ID, err)
		}
		models, err := client.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("provider %s: %w\n\nStart Ollama with: ollama serve", p.ID, err)
		}
		for _, m := range models {
			rows = append(rows, output.ModelRow{
				Provider:   p.ID,
				Name:       m.Name,
				Size:       m.Size,
				ModifiedAt: m.ModifiedAt,
			})
		}
	}

	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "No ollama providers configured.")
		return nil
	}

	writer := output.New(cmd.OutOrStdout(), format)
	return writer.WriteModels(rows)
}
