package driven

import (
	"context"

	"github.com/loci-labs/loci/internal/core/domain"
)

// RunStore records ingestion run reports for later inspection.
type RunStore interface {
	// SaveRun persists a finished run report.
	SaveRun(ctx context.Context, report *domain.IngestReport) error

	// Run retrieves one report by run ID, or ErrNotFound.
	Run(ctx context.Context, runID string) (*domain.IngestReport, error)

	// ListRuns returns the most recent reports, newest first.
	ListRuns(ctx context.Context, limit int) ([]*domain.IngestReport, error)
}
