package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/advisor/internal/output"
)

// Build metadata, overridden with -ldflags "-X github.com/bimmerbailey/advisor/cmd.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	if output.ParseFormat(viper.GetString("format")) == output.FormatJSON {
		return output.New(cmd.OutOrStdout(), output.FormatJSON).WriteJSON(map[string]string{
			"version": version,
			"commit":  commit,
			"built":   date,
		})
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "advisor %s (commit: %s, built: %s)\n", version, commit, date)
	return err
}
