// Package static provides a deterministic, fully offline embedding
// service. Each keyword term is hashed into a fixed bucket with a
// hash-derived sign, so texts sharing terms have correlated vectors.
// Similarity tracks token overlap, not meaning; the point is a working
// vector leg with zero external dependencies, for tests and air-gapped
// setups.
package static

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/keyword"
	"github.com/loci-labs/loci/internal/vecmath"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultDimensions = 64
	MinDimensions     = 8
)

// Config holds configuration for the static embedding service.
type Config struct {
	// Dimensions is the embedding vector size (default: 64).
	Dimensions int
}

// EmbeddingService generates deterministic bag-of-words embeddings.
type EmbeddingService struct {
	dims int
}

// NewEmbeddingService creates a new static embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	if dims < MinDimensions {
		dims = MinDimensions
	}
	return &EmbeddingService{dims: dims}
}

// Embed generates a vector embedding for the given text. Texts with
// the same term multiset produce identical vectors. Text without any
// terms produces the zero vector.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dims)
	for _, term := range keyword.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(term)) //nolint:errcheck // hash writes never fail
		sum := h.Sum64()

		idx := int(sum % uint64(s.dims))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	return vecmath.NormalizeL2(vec), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dims
}

// ModelName returns the embedder identifier for display.
func (s *EmbeddingService) ModelName() string {
	return fmt.Sprintf("static-%d", s.dims)
}

// Ping always succeeds, there is no remote service.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
