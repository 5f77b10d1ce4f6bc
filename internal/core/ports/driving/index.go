package driving

import (
	"context"

	"github.com/loci-labs/loci/internal/core/domain"
)

// Indexer runs ingestion and answers questions about the index.
type Indexer interface {
	// Index ingests the given sources, returning the run report.
	// A run already in flight on the same index returns
	// ErrIndexInProgress. Per-document failures are recorded in the
	// report and do not abort the run.
	Index(ctx context.Context, sources []domain.RawSource) (*domain.IngestReport, error)

	// Status summarizes the index and the most recent run.
	Status(ctx context.Context) (*domain.IndexStatus, error)

	// Busy reports whether a run is in flight in this process.
	Busy() bool

	// Progress returns a snapshot of the live run. When idle,
	// Running is false and the rest is zero.
	Progress() domain.RunStatus
}

// DocumentService manages indexed documents.
type DocumentService interface {
	// List returns indexed documents, optionally restricted to a
	// project.
	List(ctx context.Context, project string) ([]domain.Document, error)

	// Detail returns one document with its chunks.
	Detail(ctx context.Context, sourcePath, project string) (*domain.Document, []domain.Chunk, error)

	// Remove deletes a document and all derived rows.
	Remove(ctx context.Context, sourcePath, project string) error
}

// RunService exposes recorded ingestion runs.
type RunService interface {
	// List returns the most recent run reports, newest first.
	List(ctx context.Context, limit int) ([]*domain.IngestReport, error)

	// Get retrieves one run by ID.
	Get(ctx context.Context, runID string) (*domain.IngestReport, error)
}
