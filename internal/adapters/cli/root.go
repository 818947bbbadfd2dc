package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "synctl",
		Short: "synctl - Operate the RMS/commerce sync engine",
		Long: `synctl drives the sync engine from the command line: one-off sync runs,
order ingestion, and checkpoint inspection.

Examples:
  synctl sync run
  synctl sync run --full --force
  synctl sync status
  synctl order ingest 5479650353233
  synctl checkpoint show
  synctl checkpoint reset`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")

	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewOrderCommand())
	rootCmd.AddCommand(NewCheckpointCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
