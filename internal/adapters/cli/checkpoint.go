package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewCheckpointCommand creates the checkpoint command group
func NewCheckpointCommand() *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and reset the sync watermark",
	}

	checkpointCmd.AddCommand(newCheckpointShowCommand())
	checkpointCmd.AddCommand(newCheckpointResetCommand())

	return checkpointCmd
}

func newCheckpointShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current watermark",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp(configPath, nil, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			watermark, err := app.Updates.Read()
			if err != nil {
				return err
			}
			cmd.Printf("watermark: %s\n", watermark.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

func newCheckpointResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the watermark so the next run re-covers the default lookback",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp(configPath, nil, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			if !yes {
				cmd.Println("this re-syncs the whole lookback window on the next run; pass --yes to confirm")
				return nil
			}

			path := filepath.Join(app.Config.Sync.CheckpointPath, "checkpoint.json")
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			cmd.Println("watermark reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	return cmd
}
