package driving

import (
	"context"

	"github.com/loci-labs/loci/internal/core/domain"
)

// SearchService answers queries against the index.
type SearchService interface {
	// Search parses the raw query, applies the options and returns the
	// ranked results, best first. A query that is only filters is
	// valid; an empty query is not.
	Search(ctx context.Context, raw string, opts domain.SearchOptions) ([]domain.ScoredResult, error)
}
