package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loci-labs/loci/internal/core/domain"
)

var docsProject string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
	Long:  `List, inspect or remove documents in the local index.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

var docsRmCmd = &cobra.Command{
	Use:   "rm [path]",
	Short: "Remove a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsRm,
}

func init() {
	docsCmd.PersistentFlags().StringVarP(&docsProject, "project", "p", "", "project the document belongs to")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsRmCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(context.Background(), docsProject)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s\n", d.SourcePath)
		cmd.Printf("    Project: %s  Type: %s  Indexed: %s\n",
			displayProject(d.Project), d.SourceType, d.IndexedAt.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, chunks, err := documentService.Detail(context.Background(), args[0], docsProject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no document indexed at %s", args[0])
		}
		return fmt.Errorf("loading document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.SourcePath)
	cmd.Printf("  Project:   %s\n", displayProject(doc.Project))
	cmd.Printf("  Type:      %s\n", doc.SourceType)
	cmd.Printf("  Language:  %s\n", doc.Language)
	if doc.SourceDate != nil {
		cmd.Printf("  Dated:     %s\n", doc.SourceDate.Format("2006-01-02"))
	}
	cmd.Printf("  Indexed:   %s\n", doc.IndexedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Hash:      %s\n", doc.ContentHash)

	cmd.Printf("\nChunks (%d):\n", len(chunks))
	for i := range chunks {
		c := &chunks[i]
		loc := ""
		if c.Locator != nil {
			loc = c.Locator.String()
		}
		cmd.Printf("  [%d] %s (%d tokens)\n", c.ChunkIndex, loc, c.TokenCount)
	}
	return nil
}

func runDocsRm(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Remove(context.Background(), args[0], docsProject); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no document indexed at %s", args[0])
		}
		return fmt.Errorf("removing document: %w", err)
	}

	cmd.Printf("Removed %s from the index.\n", args[0])
	return nil
}

func displayProject(p string) string {
	if p == "" {
		return "-"
	}
	return p
}
