package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - The deterministic static embedder used in tests and offline setups
//
// When the service is unreachable, callers degrade: hybrid search drops
// to keyword-only, indexing reports the failed documents and carries on.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The result has exactly one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. All stored vectors
	// share it; a provider switch that changes it requires re-indexing.
	Dimensions() int

	// ModelName returns the provider/model identifier for display.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request. Used at startup to pick the search mode honestly.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
