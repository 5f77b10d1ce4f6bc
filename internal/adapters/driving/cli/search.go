package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loci-labs/loci/internal/core/domain"
)

var (
	searchTopK    int
	searchMode    string
	searchProject string
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index",
	Long: `Runs a query against the local index, combining semantic vector
similarity with BM25 keyword relevance. The query syntax supports
"quoted phrases", -excluded terms and project:/type:/before:/after:
filters.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "k", 0, "maximum number of results (default 5)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "ranking mode: hybrid, vector or keyword (default hybrid)")
	searchCmd.Flags().StringVar(&searchProject, "project", "", "project context; its documents rank higher")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		TopK:         searchTopK,
		Mode:         domain.SearchMode(searchMode),
		BoostProject: searchProject,
	}

	results, err := searchService.Search(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredResult) error {
	if len(results) == 0 {
		cmd.Println("No results.")
		return nil
	}

	for i := range results {
		r := &results[i]
		cmd.Printf("  [%d] %s  (%.3f)\n", i+1, r.Citation(), r.Score)

		b := r.Breakdown
		cmd.Printf("      vector %.2f · keyword %.2f", b.VectorNorm, b.KeywordNorm)
		if b.RecencyBoost > 1 || b.ProjectBoost > 1 {
			cmd.Printf(" · boost x%.2f", b.RecencyBoost*b.ProjectBoost)
		}
		cmd.Println()

		if s := snippet(r.Chunk.Content); s != "" {
			cmd.Printf("      %s\n", s)
		}
		cmd.Println()
	}
	return nil
}

// snippet flattens chunk content to a single display line.
func snippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	const max = 140
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
