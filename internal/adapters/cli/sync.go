package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/retailbridge/rms-commerce-sync/internal/application/sync"
)

// NewSyncCommand creates the sync command group
func NewSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run and inspect catalog sync",
	}

	syncCmd.AddCommand(newSyncRunCommand())
	syncCmd.AddCommand(newSyncStatusCommand())

	return syncCmd
}

func newSyncRunCommand() *cobra.Command {
	var full bool
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync pass",
		Long: `Runs one change-detection pass against the RMS database and pushes the
modified products to the commerce platform. With --full the whole catalog is
re-synced regardless of the watermark; --force additionally re-writes
products that appear unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp(configPath, nil, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			start := time.Now()

			var summary *sync.RunSummary
			if full {
				summary, err = app.Detector.RunFullSync(ctx, force)
			} else {
				summary, err = app.Detector.RunChangeDetect(ctx)
			}
			if err != nil {
				return err
			}
			if summary == nil {
				cmd.Println("sync lock held by another run; nothing done")
				return nil
			}

			printSummary(cmd, summary)
			cmd.Printf("elapsed: %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Re-sync the whole catalog")
	cmd.Flags().BoolVar(&force, "force", false, "Re-write products even when unchanged")

	return cmd
}

func newSyncStatusCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp(configPath, nil, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := app.Repo.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				cmd.Println("no recorded runs")
				return nil
			}

			cmd.Printf("%-14s %-20s %9s %7s %7s %7s %6s %7s\n",
				"KIND", "STARTED", "PROCESSED", "CREATED", "UPDATED", "SKIPPED", "ERRORS", "RATIO")
			for _, run := range runs {
				cmd.Printf("%-14s %-20s %9d %7d %7d %7d %6d %6.1f%%\n",
					run.Kind,
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Processed, run.Created, run.Updated, run.Skipped, run.Errors,
					run.SuccessRate*100,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")

	return cmd
}

func printSummary(cmd *cobra.Command, s *sync.RunSummary) {
	cmd.Printf("processed: %d  created: %d  updated: %d  skipped: %d  partial: %d  errors: %d\n",
		s.Processed, s.Created, s.Updated, s.Skipped, s.Partial, s.Errors)
	cmd.Printf("inventory updated: %d  failed: %d  success ratio: %.1f%%\n",
		s.InventoryUpdated, s.InventoryFailed, s.SuccessRate()*100)
	for _, sample := range s.ErrorSamples {
		cmd.Printf("  error: %s\n", sample)
	}
}
