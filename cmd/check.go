package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/advisor/internal/output"
)

var errNoProviderAvailable = errors.New("no provider is reachable")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which providers are reachable",
	Long: `Probe every configured provider and report which one would answer.

Providers are probed concurrently; the first reachable provider in config
order becomes the active one. The command exits non-zero when none is
reachable.

Examples:
  advisor check
  advisor check --format table
  advisor check --format json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	format := output.ParseFormat(viper.GetString("format"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := newSession(cfg, newLogger())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ok := sess.CheckAvailability(ctx)

	writer := output.New(cmd.OutOrStdout(), format)
	if err := writer.WriteStatus(sess.Status()); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w%s", errNoProviderAvailable, providerHelp)
	}
	return nil
}
