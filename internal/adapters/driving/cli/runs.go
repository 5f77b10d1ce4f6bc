package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loci-labs/loci/internal/core/domain"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show ingestion run history",
	Long: `Lists recorded ingestion runs, newest first. With a run ID, shows
that run's full report including per-document failures.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "maximum number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if runService == nil {
		return errors.New("run service not configured")
	}

	ctx := context.Background()
	if len(args) == 1 {
		return showRun(ctx, cmd, args[0])
	}

	runs, err := runService.List(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for _, r := range runs {
		took := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
		cmd.Printf("  %s  %s  %s  %d processed, %d skipped, %d failed\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), took,
			r.Processed, r.Skipped, r.Failed)
	}
	return nil
}

func showRun(ctx context.Context, cmd *cobra.Command, runID string) error {
	r, err := runService.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no run recorded with ID %s", runID)
		}
		return fmt.Errorf("loading run: %w", err)
	}

	cmd.Printf("Run %s\n\n", r.RunID)
	cmd.Printf("  Started:   %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Finished:  %s\n", r.FinishedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Processed: %d\n", r.Processed)
	cmd.Printf("  Skipped:   %d\n", r.Skipped)
	cmd.Printf("  Failed:    %d\n", r.Failed)

	if len(r.Errors) > 0 {
		cmd.Println("\n  Failures:")
		for i := range r.Errors {
			e := &r.Errors[i]
			cmd.Printf("    %s at %s: %s\n", e.SourcePath, e.Stage, e.Message)
		}
	}
	return nil
}
