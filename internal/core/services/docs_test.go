package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loci-labs/loci/internal/core/domain"
)

func TestDocumentService(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t, IndexerConfig{})
	ctx := context.Background()

	_, err := orch.Index(ctx, []domain.RawSource{
		mdSource("notes/a.md", "work", "# Alpha\n\nFirst document body."),
		mdSource("notes/b.md", "work", "# Beta\n\nSecond document body."),
		mdSource("recipes/soup.md", "home", "# Soup\n\nSimmer for an hour."),
	})
	require.NoError(t, err)

	svc := NewDocumentService(store.DocumentStore())

	t.Run("list all", func(t *testing.T) {
		docs, err := svc.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})

	t.Run("list by project", func(t *testing.T) {
		docs, err := svc.List(ctx, "home")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "recipes/soup.md", docs[0].SourcePath)
	})

	t.Run("detail", func(t *testing.T) {
		doc, chunks, err := svc.Detail(ctx, "notes/a.md", "work")
		require.NoError(t, err)
		assert.Equal(t, "notes/a.md", doc.SourcePath)
		require.NotEmpty(t, chunks)
		assert.Contains(t, chunks[0].Content, "First document body")
	})

	t.Run("detail missing", func(t *testing.T) {
		_, _, err := svc.Detail(ctx, "notes/ghost.md", "work")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, svc.Remove(ctx, "notes/b.md", "work"))

		docs, err := svc.List(ctx, "work")
		require.NoError(t, err)
		assert.Len(t, docs, 1)

		_, _, err = svc.Detail(ctx, "notes/b.md", "work")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
