package services

import (
	"context"
	"fmt"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/core/ports/driving"
)

// Ensure RunService implements the interface.
var _ driving.RunService = (*RunService)(nil)

// DefaultRunLimit caps run listings when the caller does not ask for a
// count.
const DefaultRunLimit = 10

// RunService exposes recorded ingestion runs.
type RunService struct {
	runs driven.RunStore
}

// NewRunService creates a new run service.
func NewRunService(runs driven.RunStore) *RunService {
	return &RunService{runs: runs}
}

// List returns the most recent run reports, newest first.
func (s *RunService) List(ctx context.Context, limit int) ([]*domain.IngestReport, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	reports, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return reports, nil
}

// Get retrieves one run by ID.
func (s *RunService) Get(ctx context.Context, runID string) (*domain.IngestReport, error) {
	return s.runs.Run(ctx, runID)
}
