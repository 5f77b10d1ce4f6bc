package driven

import (
	"context"

	"github.com/loci-labs/loci/internal/core/domain"
)

// Vector backend names reported by VectorSearcher.Backend.
const (
	VectorBackendNative   = "native"
	VectorBackendFallback = "fallback"
)

// VectorSearcher ranks stored chunk embeddings by similarity to a query
// vector. Implementations may use a native SQLite vector index or a
// brute-force scan; both produce identical orderings for identical
// inputs.
type VectorSearcher interface {
	// SearchVectors returns the k most similar chunks out of allowed,
	// best first, ties broken by ascending chunk ID. A nil allowed set
	// searches everything. Vectors with a dimension differing from the
	// stored ones produce a *domain.DimensionMismatchError.
	SearchVectors(ctx context.Context, query []float32, allowed []int64, k int) ([]domain.VectorMatch, error)

	// Backend reports which implementation is active.
	Backend() string
}
