package domain

// ScoreBreakdown itemizes how a result's final score was assembled.
// It is returned with every result so rankings stay explainable.
type ScoreBreakdown struct {
	// Vector is the raw cosine similarity (-1..1), 0 when the vector
	// leg did not run.
	Vector float64

	// Keyword is the raw keyword relevance score.
	Keyword float64

	// VectorNorm is Vector mapped into 0..1.
	VectorNorm float64

	// KeywordNorm is Keyword divided by the candidate-set maximum.
	KeywordNorm float64

	// RecencyBoost is the multiplier applied for document age.
	// 1 means no boost (including documents without a source date).
	RecencyBoost float64

	// ProjectBoost is the multiplier applied for a project-context
	// match. 1 means no boost.
	ProjectBoost float64
}

// ScoredResult is one ranked hit: the chunk, its document metadata, the
// final score and the breakdown behind it.
type ScoredResult struct {
	Chunk     Chunk
	Document  Document
	Score     float64
	Breakdown ScoreBreakdown
}

// Citation renders the provenance line for the result, e.g.
// "notes/setup.md · Setup > Install (lines 10-18)".
func (r ScoredResult) Citation() string {
	if r.Chunk.Locator == nil {
		return r.Document.SourcePath
	}
	return r.Document.SourcePath + " · " + r.Chunk.Locator.String()
}
