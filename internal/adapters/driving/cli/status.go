package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if indexService == nil {
		return errors.New("index service not configured")
	}

	st, err := indexService.Status(context.Background())
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	cmd.Printf("Documents:  %d\n", st.Documents)
	cmd.Printf("Chunks:     %d\n", st.Chunks)
	cmd.Printf("Vectors:    %s backend\n", st.VectorBackend)
	cmd.Printf("Embeddings: %s (%d dimensions)\n", st.EmbeddingProvider, st.EmbeddingDims)

	if st.LastRun != nil {
		r := st.LastRun
		cmd.Printf("Last run:   %s (%d processed, %d skipped, %d failed)\n",
			r.FinishedAt.Format("2006-01-02 15:04:05"), r.Processed, r.Skipped, r.Failed)
	} else {
		cmd.Println("Last run:   never")
	}
	return nil
}
