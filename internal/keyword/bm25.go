package keyword

import (
	"math"

	"github.com/loci-labs/loci/internal/core/domain"
)

// Default BM25 parameters. k1 bounds term-frequency saturation, b sets
// how strongly chunk length normalizes the score.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Scorer computes BM25 scores.
type Scorer struct {
	k1 float64
	b  float64
}

// NewScorer builds a scorer. Parameters at or below zero fall back to
// the defaults.
func NewScorer(k1, b float64) *Scorer {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b <= 0 {
		b = DefaultB
	}
	return &Scorer{k1: k1, b: b}
}

// ScoreAll scores every chunk that matches at least one query term.
//
// postings may be pre-filtered to the candidate set, but df must stay
// corpus-wide document frequencies and chunkLen maps chunk id to its
// stored term count. Duplicate query terms count once.
func (s *Scorer) ScoreAll(
	terms []string,
	postings map[string][]domain.Posting,
	df map[string]int,
	chunkLen map[int64]int,
	stats domain.CorpusStats,
) map[int64]float64 {
	scores := make(map[int64]float64)
	if stats.TotalChunks == 0 {
		return scores
	}
	avg := stats.AvgTermCount
	if avg <= 0 {
		avg = 1
	}
	n := float64(stats.TotalChunks)

	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		freq := float64(df[term])
		// The +1 keeps IDF positive even for terms in most chunks.
		idf := math.Log(1 + (n-freq+0.5)/(freq+0.5))

		for _, p := range postings[term] {
			dl := float64(chunkLen[p.ChunkID])
			tf := float64(p.TF)
			denom := tf + s.k1*(1-s.b+s.b*dl/avg)
			scores[p.ChunkID] += idf * (tf * (s.k1 + 1)) / denom
		}
	}
	return scores
}

// Normalize maps raw scores onto [0, 1] by dividing by the maximum.
// An empty or all-zero map is returned unchanged.
func Normalize(scores map[int64]float64) map[int64]float64 {
	var max float64
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return scores
	}
	normalized := make(map[int64]float64, len(scores))
	for id, s := range scores {
		normalized[id] = s / max
	}
	return normalized
}
