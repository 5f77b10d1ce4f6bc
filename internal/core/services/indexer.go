package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/loci-labs/loci/internal/chunker"
	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/core/ports/driving"
	"github.com/loci-labs/loci/internal/logger"
)

// Ensure IndexOrchestrator implements the interface.
var _ driving.Indexer = (*IndexOrchestrator)(nil)

// Embedding defaults for one run.
const (
	DefaultEmbedBatchSize = 32
	DefaultEmbedWorkers   = 4
)

// lockFileName is the cross-process lock next to the database.
const lockFileName = "index.lock"

// IndexerConfig tunes one orchestrator.
type IndexerConfig struct {
	// DataDir hosts the cross-process lock file.
	DataDir string

	// EmbedBatchSize caps texts per embedding gateway call.
	EmbedBatchSize int

	// EmbedWorkers bounds concurrent gateway calls per document.
	EmbedWorkers int
}

func (c IndexerConfig) withDefaults() IndexerConfig {
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if c.EmbedWorkers <= 0 {
		c.EmbedWorkers = DefaultEmbedWorkers
	}
	return c
}

// IndexOrchestrator runs the ingestion pipeline: parse, hash-skip,
// chunk, embed, store. One run at a time per index; documents commit
// independently so one failure never poisons the rest.
type IndexOrchestrator struct {
	registry driven.ParserRegistry
	splitter *chunker.Splitter
	embedder driven.EmbeddingService
	store    driven.DocumentStore
	vectors  driven.VectorSearcher
	runs     driven.RunStore
	cfg      IndexerConfig

	// Status tracking
	mu      sync.RWMutex
	running bool
	status  domain.RunStatus
}

// NewIndexOrchestrator creates a new index orchestrator.
func NewIndexOrchestrator(
	registry driven.ParserRegistry,
	splitter *chunker.Splitter,
	embedder driven.EmbeddingService,
	store driven.DocumentStore,
	vectors driven.VectorSearcher,
	runs driven.RunStore,
	cfg IndexerConfig,
) *IndexOrchestrator {
	return &IndexOrchestrator{
		registry: registry,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		vectors:  vectors,
		runs:     runs,
		cfg:      cfg.withDefaults(),
	}
}

// Index ingests the given sources and returns the run report. A second
// concurrent run, in this process or another, fails fast with
// ErrIndexInProgress.
func (o *IndexOrchestrator) Index(ctx context.Context, sources []domain.RawSource) (*domain.IngestReport, error) {
	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.release()

	lock := flock.New(filepath.Join(o.cfg.DataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return nil, domain.ErrIndexInProgress
	}
	defer lock.Unlock() //nolint:errcheck // the lock dies with the process anyway

	report := &domain.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	o.setRunID(report.RunID)

	logger.Section("Indexing Run")
	logger.Info("Run %s: %d sources", report.RunID, len(sources))

	for i := range sources {
		// Cancellation lands between documents, never mid-transaction.
		if err := ctx.Err(); err != nil {
			logger.Warn("Run %s cancelled after %d documents", report.RunID, report.Total())
			o.finish(ctx, report)
			return report, err
		}
		o.processSource(ctx, &sources[i], report)
	}

	o.finish(ctx, report)
	logger.Info("Run %s complete: %d processed, %d skipped, %d failed",
		report.RunID, report.Processed, report.Skipped, report.Failed)
	return report, nil
}

// Status summarizes the index and the most recent recorded run.
func (o *IndexOrchestrator) Status(ctx context.Context) (*domain.IndexStatus, error) {
	docs, err := o.store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	chunks, err := o.store.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	st := &domain.IndexStatus{
		Documents:         docs,
		Chunks:            chunks,
		VectorBackend:     o.vectors.Backend(),
		EmbeddingProvider: o.embedder.ModelName(),
		EmbeddingDims:     o.embedder.Dimensions(),
	}

	latest, err := o.runs.ListRuns(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("loading last run: %w", err)
	}
	if len(latest) > 0 {
		st.LastRun = latest[0]
	}
	return st, nil
}

// Busy reports whether a run is in flight in this process.
func (o *IndexOrchestrator) Busy() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// Progress returns a snapshot of the live run.
func (o *IndexOrchestrator) Progress() domain.RunStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// processSource pushes one source through the pipeline, recording any
// failure in the report instead of aborting the run.
func (o *IndexOrchestrator) processSource(ctx context.Context, src *domain.RawSource, report *domain.IngestReport) {
	path := src.Meta.SourcePath
	logger.Debug("Processing: %s", path)
	o.track(path, domain.DocParsing, report)

	parser, err := o.registry.ParserFor(*src)
	if err != nil {
		o.fail(report, path, domain.StageParse, err)
		return
	}
	parsed, err := parser.Parse(ctx, *src)
	if err != nil {
		o.fail(report, path, domain.StageParse, err)
		return
	}
	parsed.Meta.Normalize()
	if err := parsed.Meta.Validate(); err != nil {
		o.fail(report, path, domain.StageParse, err)
		return
	}

	hash := contentHash(parsed.PlainText())
	stored, err := o.store.ContentHash(ctx, parsed.Meta.SourcePath, parsed.Meta.Project)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		o.fail(report, path, domain.StageStore, err)
		return
	}
	if err == nil && stored == hash {
		logger.Debug("Unchanged, skipping: %s", path)
		report.Skipped++
		o.track(path, domain.DocSkipped, report)
		return
	}

	o.track(path, domain.DocChunking, report)
	drafts, err := o.splitter.Split(parsed)
	if err != nil {
		o.fail(report, path, domain.StageChunk, err)
		return
	}

	o.track(path, domain.DocEmbedding, report)
	vectors, err := o.embedDrafts(ctx, drafts)
	if err != nil {
		o.fail(report, path, domain.StageEmbed, err)
		return
	}

	up, err := o.store.UpsertDocument(ctx, parsed.Meta, hash, drafts, vectors)
	if err != nil {
		o.fail(report, path, domain.StageStore, err)
		return
	}

	logger.Debug("Stored %s: document %d, %d chunks, created=%t",
		path, up.DocumentID, up.Chunks, up.Created)
	report.Processed++
	o.track(path, domain.DocStored, report)
}

// embedDrafts embeds the chunk texts in batches on a bounded pool.
// vectors[i] belongs to drafts[i].
func (o *IndexOrchestrator) embedDrafts(ctx context.Context, drafts []domain.ChunkDraft) ([][]float32, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	texts := make([]string, len(drafts))
	for i, d := range drafts {
		texts[i] = d.Content
	}

	vectors := make([][]float32, len(texts))
	size := o.cfg.EmbedBatchSize
	sem := make(chan struct{}, o.cfg.EmbedWorkers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))

		mu.Lock()
		abort := firstErr != nil
		mu.Unlock()
		if abort {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(start, end int) {
			defer wg.Done()
			defer func() { <-sem }()

			batch, err := o.embedder.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
				}
				mu.Unlock()
				return
			}
			// Each goroutine writes a disjoint range.
			copy(vectors[start:end], batch)
		}(start, end)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

// finish stamps the report and records it. Recording uses a detached
// context so a cancelled run still leaves a trace.
func (o *IndexOrchestrator) finish(ctx context.Context, report *domain.IngestReport) {
	report.FinishedAt = time.Now().UTC()
	if err := o.runs.SaveRun(context.WithoutCancel(ctx), report); err != nil {
		logger.Warn("Failed to record run %s: %v", report.RunID, err)
	}
}

// fail records one document failure and keeps the run going.
func (o *IndexOrchestrator) fail(report *domain.IngestReport, path string, stage domain.IngestStage, err error) {
	logger.Warn("%s failed at %s: %v", path, stage, err)
	report.Failed++
	report.Errors = append(report.Errors, domain.IngestError{
		SourcePath: path,
		Stage:      stage,
		Message:    err.Error(),
	})
	o.track(path, domain.DocFailed, report)
}

// acquire takes the in-process guard.
func (o *IndexOrchestrator) acquire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return domain.ErrIndexInProgress
	}
	o.running = true
	o.status = domain.RunStatus{Running: true}
	return nil
}

// release clears the in-process guard.
func (o *IndexOrchestrator) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.status = domain.RunStatus{}
}

func (o *IndexOrchestrator) setRunID(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.RunID = runID
}

// track updates the live status snapshot.
func (o *IndexOrchestrator) track(path string, state domain.DocState, report *domain.IngestReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.CurrentPath = path
	o.status.State = state
	o.status.Processed = report.Processed
	o.status.Skipped = report.Skipped
	o.status.Failed = report.Failed
}

// contentHash fingerprints the parsed text, so formatting-only changes
// in the raw bytes that do not alter extracted text still skip.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
