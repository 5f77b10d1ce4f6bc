package domain

import "time"

// CandidateChunk is a chunk that survived the hard filters, carrying
// just the fields ranking needs. Full chunks and documents are loaded
// only for the final top-K.
type CandidateChunk struct {
	ChunkID    int64
	DocumentID int64

	// Content is needed for exact phrase and exclusion checks.
	Content string

	// TermCount is the chunk length used by keyword scoring.
	TermCount int

	// Project and SourceDate feed the ranking boosts.
	Project    string
	SourceDate *time.Time
}

// Posting records one chunk's term frequency for a single term.
type Posting struct {
	ChunkID int64
	TF      int
}

// CorpusStats summarizes the whole indexed corpus for keyword scoring.
// Statistics always cover the full corpus, not the filtered candidate
// set, so a term's weight does not change with the filters applied.
type CorpusStats struct {
	TotalChunks  int
	AvgTermCount float64
}

// VectorMatch pairs a chunk with its cosine similarity to the query.
type VectorMatch struct {
	ChunkID    int64
	Similarity float64
}

// TermIndex carries everything keyword scoring needs for one query.
type TermIndex struct {
	// Stats covers the whole corpus.
	Stats CorpusStats

	// Postings per term, restricted to the requested candidate set.
	Postings map[string][]Posting

	// DF holds corpus-wide document frequencies per term.
	DF map[string]int
}
