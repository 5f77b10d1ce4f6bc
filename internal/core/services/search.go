package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/core/ports/driving"
	"github.com/loci-labs/loci/internal/keyword"
	"github.com/loci-labs/loci/internal/logger"
	"github.com/loci-labs/loci/internal/queryparse"
	"github.com/loci-labs/loci/internal/vecmath"
)

// Ensure RetrievalService implements the interface.
var _ driving.SearchService = (*RetrievalService)(nil)

// Default ranking parameters. The hybrid weights lean on the vector
// side; recency decays with a 90-day half-life.
const (
	DefaultVectorWeight        = 0.7
	DefaultKeywordWeight       = 0.3
	DefaultRecencyWeight       = 0.25
	DefaultRecencyHalfLifeDays = 90.0
	DefaultProjectWeight       = 0.15
)

// RankingConfig tunes how the two retrieval legs combine and which
// boosts apply. Zero boost weights disable the boost.
type RankingConfig struct {
	VectorWeight  float64
	KeywordWeight float64

	BM25K1 float64
	BM25B  float64

	RecencyWeight       float64
	RecencyHalfLifeDays float64
	ProjectWeight       float64
}

// withDefaults repairs values a zero-value config cannot run with. An
// explicit single-sided weight pair is kept as given.
func (c RankingConfig) withDefaults() RankingConfig {
	if c.VectorWeight <= 0 && c.KeywordWeight <= 0 {
		c.VectorWeight = DefaultVectorWeight
		c.KeywordWeight = DefaultKeywordWeight
	}
	if c.RecencyHalfLifeDays <= 0 {
		c.RecencyHalfLifeDays = DefaultRecencyHalfLifeDays
	}
	return c
}

// scoredChunk holds one candidate's scores before hydration.
type scoredChunk struct {
	chunkID    int64
	documentID int64
	final      float64
	breakdown  domain.ScoreBreakdown
}

// RetrievalService ranks indexed chunks against parsed queries using
// hybrid vector and keyword scoring.
type RetrievalService struct {
	store    driven.DocumentStore
	vectors  driven.VectorSearcher
	embedder driven.EmbeddingService
	cfg      RankingConfig
	scorer   *keyword.Scorer
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	store driven.DocumentStore,
	vectors driven.VectorSearcher,
	embedder driven.EmbeddingService,
	cfg RankingConfig,
) *RetrievalService {
	cfg = cfg.withDefaults()
	return &RetrievalService{
		store:    store,
		vectors:  vectors,
		embedder: embedder,
		cfg:      cfg,
		scorer:   keyword.NewScorer(cfg.BM25K1, cfg.BM25B),
	}
}

// Search parses the raw query, scores the eligible chunks and returns
// the hydrated top results, best first.
func (s *RetrievalService) Search(
	ctx context.Context,
	raw string,
	opts domain.SearchOptions,
) ([]domain.ScoredResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", raw)

	q, err := queryparse.Parse(raw)
	if err != nil {
		return nil, err
	}

	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	q.Filters = q.Filters.Merge(opts.Filters)
	logger.Debug("Parsed: %d terms, %d phrases, %d excludes", len(q.Terms), len(q.Phrases), len(q.Excludes))

	candidates, err := s.store.EligibleChunks(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}
	logger.Debug("Candidates after filters: %d", len(candidates))
	if len(candidates) == 0 {
		return []domain.ScoredResult{}, nil
	}

	vw, kw := s.weights(opts)
	logger.Debug("Mode: %s, weights: vector=%.2f keyword=%.2f", opts.Mode, vw, kw)

	var vecScores map[int64]float64
	if vw > 0 {
		vecScores, err = s.vectorScores(ctx, q, candidates)
		switch {
		case err == nil:
		case opts.Mode == domain.SearchModeHybrid && errors.Is(err, domain.ErrEmbeddingUnavailable):
			// Keyword results beat no results.
			logger.Warn("Embedding service unavailable, falling back to keyword-only: %v", err)
			vw, kw = 0, 1
			vecScores = nil
		default:
			return nil, err
		}
	}

	var kwScores map[int64]float64
	if kw > 0 {
		kwScores, err = s.keywordScores(ctx, q, candidates)
		if err != nil {
			return nil, err
		}
	}

	ranked := s.rank(candidates, vecScores, kwScores, vw, kw, opts.BoostProject)
	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}

	results, err := s.hydrate(ctx, ranked)
	if err != nil {
		return nil, err
	}
	logger.Info("Final results: %d", len(results))
	return results, nil
}

// weights resolves the effective leg weights. Single-leg modes force
// them; hybrid uses per-call overrides when given, config otherwise.
func (s *RetrievalService) weights(opts domain.SearchOptions) (vw, kw float64) {
	switch opts.Mode {
	case domain.SearchModeVector:
		return 1, 0
	case domain.SearchModeKeyword:
		return 0, 1
	}
	if opts.VectorWeight+opts.KeywordWeight > 0 {
		return opts.VectorWeight, opts.KeywordWeight
	}
	return s.cfg.VectorWeight, s.cfg.KeywordWeight
}

// vectorScores embeds the query once and scores every candidate by
// cosine similarity.
func (s *RetrievalService) vectorScores(
	ctx context.Context,
	q domain.Query,
	candidates []domain.CandidateChunk,
) (map[int64]float64, error) {
	text := embedText(q)
	if text == "" {
		logger.Debug("No scorable text in query, skipping vector leg")
		return map[int64]float64{}, nil
	}

	logger.Debug("Embedding query (%d bytes)", len(text))
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	vec = vecmath.NormalizeL2(vec)

	allowed := chunkIDs(candidates)
	matches, err := s.vectors.SearchVectors(ctx, vec, allowed, len(allowed))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector leg: %d of %d candidates scored", len(matches), len(allowed))

	scores := make(map[int64]float64, len(matches))
	for _, m := range matches {
		scores[m.ChunkID] = m.Similarity
	}
	return scores, nil
}

// keywordScores runs BM25 over postings restricted to the candidates.
func (s *RetrievalService) keywordScores(
	ctx context.Context,
	q domain.Query,
	candidates []domain.CandidateChunk,
) (map[int64]float64, error) {
	terms := scoringTerms(q)
	if len(terms) == 0 {
		logger.Debug("No scorable terms in query, skipping keyword leg")
		return map[int64]float64{}, nil
	}

	idx, err := s.store.TermIndex(ctx, terms, chunkIDs(candidates))
	if err != nil {
		return nil, fmt.Errorf("loading term index: %w", err)
	}

	chunkLen := make(map[int64]int, len(candidates))
	for _, c := range candidates {
		chunkLen[c.ChunkID] = c.TermCount
	}
	scores := s.scorer.ScoreAll(terms, idx.Postings, idx.DF, chunkLen, idx.Stats)
	logger.Debug("Keyword leg: %d of %d candidates scored", len(scores), len(candidates))
	return scores, nil
}

// rank normalizes both legs, combines them with the effective weights,
// applies the boosts and sorts.
func (s *RetrievalService) rank(
	candidates []domain.CandidateChunk,
	vecScores, kwScores map[int64]float64,
	vw, kw float64,
	boostProject string,
) []scoredChunk {
	kwNorm := keyword.Normalize(kwScores)
	now := time.Now().UTC()

	ranked := make([]scoredChunk, 0, len(candidates))
	for _, c := range candidates {
		b := domain.ScoreBreakdown{RecencyBoost: 1, ProjectBoost: 1}

		// Chunks without a stored vector contribute nothing on the
		// vector side.
		if raw, ok := vecScores[c.ChunkID]; ok {
			b.Vector = raw
			b.VectorNorm = (raw + 1) / 2
		}
		b.Keyword = kwScores[c.ChunkID]
		b.KeywordNorm = kwNorm[c.ChunkID]

		final := vw*b.VectorNorm + kw*b.KeywordNorm

		if c.SourceDate != nil && s.cfg.RecencyWeight > 0 {
			ageDays := now.Sub(c.SourceDate.UTC()).Hours() / 24
			if ageDays < 0 {
				ageDays = 0
			}
			b.RecencyBoost = 1 + s.cfg.RecencyWeight*math.Exp(-ageDays/s.cfg.RecencyHalfLifeDays)
		}
		if boostProject != "" && c.Project == boostProject && s.cfg.ProjectWeight > 0 {
			b.ProjectBoost = 1 + s.cfg.ProjectWeight
		}
		final *= b.RecencyBoost * b.ProjectBoost

		ranked = append(ranked, scoredChunk{
			chunkID:    c.ChunkID,
			documentID: c.DocumentID,
			final:      final,
			breakdown:  b,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		x, y := ranked[i], ranked[j]
		if x.final != y.final {
			return x.final > y.final
		}
		if x.breakdown.Vector != y.breakdown.Vector {
			return x.breakdown.Vector > y.breakdown.Vector
		}
		return x.chunkID < y.chunkID
	})
	return ranked
}

// hydrate loads full chunks and documents for the ranked results.
// Rows deleted since candidate selection are skipped, not errors.
func (s *RetrievalService) hydrate(ctx context.Context, ranked []scoredChunk) ([]domain.ScoredResult, error) {
	results := make([]domain.ScoredResult, 0, len(ranked))
	docs := make(map[int64]*domain.Document, len(ranked))

	for _, sc := range ranked {
		chunk, err := s.store.ChunkByID(ctx, sc.chunkID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Chunk %d vanished during search, skipping", sc.chunkID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading chunk %d: %w", sc.chunkID, err)
		}

		doc, ok := docs[sc.documentID]
		if !ok {
			doc, err = s.store.DocumentByID(ctx, sc.documentID)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Document %d vanished during search, skipping", sc.documentID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("loading document %d: %w", sc.documentID, err)
			}
			docs[sc.documentID] = doc
		}

		results = append(results, domain.ScoredResult{
			Chunk:     *chunk,
			Document:  *doc,
			Score:     sc.final,
			Breakdown: sc.breakdown,
		})
	}
	return results, nil
}

// embedText is the natural-language remainder of the query: terms and
// phrases, without filter syntax or exclusions.
func embedText(q domain.Query) string {
	parts := make([]string, 0, len(q.Terms)+len(q.Phrases))
	parts = append(parts, q.Terms...)
	parts = append(parts, q.Phrases...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// scoringTerms normalizes query terms and phrase words the same way
// indexed content was tokenized. Phrase words score like plain terms;
// the phrase itself already acted as a hard filter.
func scoringTerms(q domain.Query) []string {
	return keyword.Tokenize(embedText(q))
}

func chunkIDs(candidates []domain.CandidateChunk) []int64 {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChunkID
	}
	return ids
}
