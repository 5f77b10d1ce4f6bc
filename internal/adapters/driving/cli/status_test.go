package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loci-labs/loci/internal/core/domain"
)

func TestStatusCmd(t *testing.T) {
	finished := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	mock := &mockIndexer{status: &domain.IndexStatus{
		Documents:         12,
		Chunks:            87,
		VectorBackend:     "native",
		EmbeddingProvider: "static-16",
		EmbeddingDims:     16,
		LastRun:           &domain.IngestReport{FinishedAt: finished, Processed: 3, Skipped: 9},
	}}
	defer setupIndexTest(mock)()

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  12")
	assert.Contains(t, out, "Chunks:     87")
	assert.Contains(t, out, "native backend")
	assert.Contains(t, out, "static-16 (16 dimensions)")
	assert.Contains(t, out, "2026-08-20 10:30:00 (3 processed, 9 skipped, 0 failed)")
}

func TestStatusCmd_EmptyIndex(t *testing.T) {
	mock := &mockIndexer{status: &domain.IndexStatus{
		VectorBackend:     "fallback",
		EmbeddingProvider: "static-16",
		EmbeddingDims:     16,
	}}
	defer setupIndexTest(mock)()

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Last run:   never")
}

func TestStatusCmd_Error(t *testing.T) {
	defer setupIndexTest(&mockIndexer{})()

	_, err := execute(t, "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading status")
}
