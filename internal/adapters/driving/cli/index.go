package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/ingest"
	"github.com/loci-labs/loci/internal/logger"
)

var (
	indexProject string
	indexWatch   bool
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Index notes into the local search index",
	Long: `Walks the given files and directories, extracts text, splits it
into chunks and stores chunk embeddings alongside the keyword index.
Unchanged files are detected by content hash and skipped.

With --watch, keeps running and re-indexes files as they change.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexProject, "project", "p", "", "project the indexed documents belong to")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep watching the paths and re-index on change")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if indexService == nil {
		return errors.New("index service not configured")
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if indexWatch {
		return runWatch(cmd, paths)
	}
	return indexOnce(context.Background(), cmd, paths)
}

func indexOnce(ctx context.Context, cmd *cobra.Command, paths []string) error {
	sources, err := newWalker().Walk(ctx, paths)
	if err != nil {
		return fmt.Errorf("collecting files: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No indexable files found.")
		return nil
	}

	cmd.Printf("Indexing %d files...\n", len(sources))

	report, err := indexWithProgress(ctx, cmd, sources)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		if errors.Is(err, domain.ErrIndexInProgress) {
			return errors.New("an indexing run is already in progress for this data directory")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

// indexWithProgress runs the orchestrator while ticking a progress
// line off its live run status.
func indexWithProgress(ctx context.Context, cmd *cobra.Command, sources []domain.RawSource) (*domain.IngestReport, error) {
	type outcome struct {
		report *domain.IngestReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := indexService.Index(ctx, sources)
		done <- outcome{report, err}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case out := <-done:
			if last >= 0 {
				cmd.Println()
			}
			return out.report, out.err
		case <-ticker.C:
			p := indexService.Progress()
			n := p.Processed + p.Skipped + p.Failed
			if p.Running && n != last {
				cmd.Printf("\r  %d/%d documents", n, len(sources))
				last = n
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	took := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	cmd.Printf("Indexed in %s: %d processed, %d skipped, %d failed.\n",
		took, report.Processed, report.Skipped, report.Failed)
	for i := range report.Errors {
		e := &report.Errors[i]
		cmd.Printf("  failed %s at %s: %s\n", e.SourcePath, e.Stage, e.Message)
	}
	cmd.Printf("Run ID: %s\n", report.RunID)
}

// runWatch indexes once, then re-indexes debounced change batches
// until interrupted.
func runWatch(cmd *cobra.Command, roots []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := indexOnce(ctx, cmd, roots); err != nil {
		return err
	}

	cfg := effectiveConfig()
	watcher, err := ingest.NewWatcher(ingest.WatcherConfig{
		Ignores:  cfg.Ingest.Ignores,
		Debounce: cfg.Ingest.Debounce(),
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	batches, err := watcher.Watch(ctx, roots)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	cmd.Printf("Watching %s. Ctrl-C to stop.\n", strings.Join(roots, ", "))

	walker := newWalker()
	for batch := range batches {
		var writes []string
		for _, ch := range batch {
			switch ch.Op {
			case ingest.ChangeWrite:
				writes = append(writes, ch.Path)
			case ingest.ChangeRemove:
				removeWatched(ctx, cmd, ch.Path)
			}
		}
		if len(writes) == 0 {
			continue
		}

		sources, err := walker.Walk(ctx, writes)
		if err != nil {
			logger.Warn("collecting changed files: %v", err)
			continue
		}
		report, err := indexService.Index(ctx, sources)
		switch {
		case err == nil:
			cmd.Printf("Re-indexed %d changed files: %d processed, %d skipped, %d failed.\n",
				len(sources), report.Processed, report.Skipped, report.Failed)
		case errors.Is(err, context.Canceled):
			return nil
		default:
			logger.Warn("re-index failed: %v", err)
		}
	}
	return nil
}

func removeWatched(ctx context.Context, cmd *cobra.Command, path string) {
	err := documentService.Remove(ctx, path, indexProject)
	switch {
	case err == nil:
		cmd.Printf("Removed %s from the index.\n", path)
	case errors.Is(err, domain.ErrNotFound):
		// Never indexed, nothing to drop.
	default:
		logger.Warn("removing %s: %v", path, err)
	}
}

func newWalker() *ingest.Walker {
	cfg := effectiveConfig()
	return ingest.NewWalker(ingest.WalkerConfig{
		Project:     indexProject,
		Ignores:     cfg.Ingest.Ignores,
		MaxFileSize: cfg.Ingest.MaxFileSize,
	})
}
