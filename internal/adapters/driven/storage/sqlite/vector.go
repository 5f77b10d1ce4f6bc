package sqlite

import (
	"context"
	"fmt"
	"sort"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/vecmath"
)

// vectorSearcher implements driven.VectorSearcher over either the vec0
// index or a brute-force scan of the embeddings table. Both paths go
// through the same final sort, so results are identical.
type vectorSearcher struct {
	store *Store
}

var _ driven.VectorSearcher = (*vectorSearcher)(nil)

// Backend reports which vector backend answers searches.
func (s *vectorSearcher) Backend() string {
	if s.store.native {
		return driven.VectorBackendNative
	}
	return driven.VectorBackendFallback
}

// SearchVectors returns the top k chunks by cosine similarity to the
// query vector. A nil allowed slice searches the whole index; an empty
// one matches nothing.
func (s *vectorSearcher) SearchVectors(ctx context.Context, query []float32, allowed []int64, k int) ([]domain.VectorMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if allowed != nil && len(allowed) == 0 {
		return nil, nil
	}

	s.store.mu.Lock()
	dims := s.store.dims
	s.store.mu.Unlock()
	if dims == 0 {
		return nil, nil
	}
	if len(query) != dims {
		return nil, &domain.DimensionMismatchError{Want: dims, Got: len(query)}
	}

	var matches []domain.VectorMatch
	var err error
	if s.store.vecActive() {
		matches, err = s.searchNative(ctx, query, allowed, k)
	} else {
		matches, err = s.searchFallback(ctx, query, allowed)
	}
	if err != nil {
		return nil, err
	}

	// Similarity descending, chunk ID ascending on ties.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// searchNative runs a KNN query against the vec0 virtual table.
func (s *vectorSearcher) searchNative(ctx context.Context, query []float32, allowed []int64, k int) ([]domain.VectorMatch, error) {
	limit := k
	if allowed != nil && len(allowed) < limit {
		limit = len(allowed)
	}

	stmt := "SELECT chunk_id, distance FROM vec_chunks WHERE embedding MATCH ? AND k = ?"
	args := []any{float32SliceToBytes(query), limit}
	if allowed != nil {
		stmt += " AND chunk_id IN (" + placeholders(len(allowed)) + ")"
		args = append(args, int64Args(allowed)...)
	}

	rows, err := s.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying vector index", Err: err}
	}
	defer rows.Close()

	var matches []domain.VectorMatch //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, &domain.StorageError{Op: "scanning vector match", Err: err}
		}
		matches = append(matches, domain.VectorMatch{
			ChunkID:    id,
			Similarity: vecmath.SimilarityFromL2(distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating vector matches", Err: err}
	}

	return matches, nil
}

// searchFallback scans stored embeddings and scores them in Go.
func (s *vectorSearcher) searchFallback(ctx context.Context, query []float32, allowed []int64) ([]domain.VectorMatch, error) {
	stmt := "SELECT chunk_id, vector FROM embeddings"
	var args []any
	if allowed != nil {
		stmt += " WHERE chunk_id IN (" + placeholders(len(allowed)) + ")"
		args = int64Args(allowed)
	}

	rows, err := s.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying embeddings", Err: err}
	}
	defer rows.Close()

	var matches []domain.VectorMatch //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, &domain.StorageError{Op: "scanning embedding", Err: err}
		}

		vec, err := bytesToFloat32Slice(blob)
		if err != nil {
			return nil, err
		}
		sim, err := vecmath.Cosine(query, vec)
		if err != nil {
			return nil, &domain.StorageError{Op: fmt.Sprintf("scoring chunk %d", id), Err: err}
		}
		matches = append(matches, domain.VectorMatch{ChunkID: id, Similarity: sim})
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating embeddings", Err: err}
	}

	return matches, nil
}
