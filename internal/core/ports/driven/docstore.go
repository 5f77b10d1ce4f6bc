package driven

import (
	"context"

	"github.com/loci-labs/loci/internal/core/domain"
)

// DocumentStore persists documents, chunks, postings and embeddings.
// Backed by SQLite.
type DocumentStore interface {
	// UpsertDocument replaces a document and all its derived rows in a
	// single transaction, keyed on (source path, project). Readers never
	// observe a partial replace.
	UpsertDocument(ctx context.Context, meta domain.DocumentMeta, contentHash string, drafts []domain.ChunkDraft, vectors [][]float32) (domain.DocUpsert, error)

	// ContentHash returns the stored hash for the identity pair, or
	// ErrNotFound when the document has never been indexed.
	ContentHash(ctx context.Context, sourcePath, project string) (string, error)

	// Document retrieves a document by its identity pair.
	Document(ctx context.Context, sourcePath, project string) (*domain.Document, error)

	// DocumentByID retrieves a document by row ID.
	DocumentByID(ctx context.Context, id int64) (*domain.Document, error)

	// Chunks returns all chunks of a document in chunk order.
	Chunks(ctx context.Context, documentID int64) ([]domain.Chunk, error)

	// ChunkByID retrieves a single chunk.
	ChunkByID(ctx context.Context, id int64) (*domain.Chunk, error)

	// DeleteDocument removes a document and every derived row.
	DeleteDocument(ctx context.Context, sourcePath, project string) error

	// ListDocuments returns documents, optionally restricted to a
	// project, ordered by source path.
	ListDocuments(ctx context.Context, project string) ([]domain.Document, error)

	// CountDocuments and CountChunks size the corpus.
	CountDocuments(ctx context.Context) (int, error)
	CountChunks(ctx context.Context) (int, error)

	// EligibleChunks returns the chunks that pass the query's hard
	// filters, phrase requirements and exclusions.
	EligibleChunks(ctx context.Context, q domain.Query) ([]domain.CandidateChunk, error)

	// TermIndex returns postings for the given terms restricted to the
	// candidate chunks, plus corpus-wide frequencies and stats.
	TermIndex(ctx context.Context, terms []string, chunkIDs []int64) (*domain.TermIndex, error)

	// Close releases the underlying database.
	Close() error
}
