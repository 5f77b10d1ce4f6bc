package domain

import "time"

// DocState tracks one document through an ingestion run.
type DocState string

// Per-document ingestion states. A document moves pending → parsing →
// chunking → embedding → stored; any working state may end in failed,
// and an unchanged document ends in skipped after parsing.
const (
	DocPending   DocState = "pending"
	DocParsing   DocState = "parsing"
	DocChunking  DocState = "chunking"
	DocEmbedding DocState = "embedding"
	DocStored    DocState = "stored"
	DocSkipped   DocState = "skipped"
	DocFailed    DocState = "failed"
)

// IngestStage names the pipeline stage a failure was recorded in.
type IngestStage string

// Failure stages.
const (
	StageParse IngestStage = "parse"
	StageChunk IngestStage = "chunk"
	StageEmbed IngestStage = "embed"
	StageStore IngestStage = "store"
)

// IngestError records one failed document in a run report. The run
// itself continues past it.
type IngestError struct {
	// SourcePath identifies the document that failed.
	SourcePath string `json:"source_path"`

	// Stage is where the failure happened.
	Stage IngestStage `json:"stage"`

	// Message is the rendered error.
	Message string `json:"message"`
}

// IngestReport summarizes one ingestion run. Reports are returned to
// the caller and recorded for later inspection.
type IngestReport struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Processed counts documents parsed, chunked, embedded and stored.
	Processed int `json:"processed"`

	// Skipped counts documents whose content hash matched the stored
	// one, making them no-ops.
	Skipped int `json:"skipped"`

	// Failed counts documents that errored at any stage.
	Failed int `json:"failed"`

	// Errors carries one entry per failed document.
	Errors []IngestError `json:"errors,omitempty"`
}

// Total returns the number of documents the run looked at.
func (r *IngestReport) Total() int {
	return r.Processed + r.Skipped + r.Failed
}

// RunStatus describes the indexing run currently in flight, if any.
type RunStatus struct {
	// Running is false when the engine is idle.
	Running bool

	// RunID identifies the active run.
	RunID string

	// CurrentPath is the document being worked on.
	CurrentPath string

	// State is the current document's pipeline state.
	State DocState

	// Counts so far.
	Processed int
	Skipped   int
	Failed    int
}

// DocUpsert reports what storing one document did.
type DocUpsert struct {
	// DocumentID is the stored document's row ID.
	DocumentID int64

	// Created is true on first insert, false on replace.
	Created bool

	// Chunks is the number of chunks written.
	Chunks int
}

// IndexStatus summarizes the index for display.
type IndexStatus struct {
	Documents int
	Chunks    int

	// VectorBackend is "native" or "fallback".
	VectorBackend string

	// EmbeddingProvider and EmbeddingDims describe the active embedder.
	EmbeddingProvider string
	EmbeddingDims     int

	// LastRun is the most recent recorded run, nil when none exists.
	LastRun *IngestReport
}
