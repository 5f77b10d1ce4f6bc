package keyword

import (
	"math"
	"testing"

	"github.com/loci-labs/loci/internal/core/domain"
)

func defaultStats() domain.CorpusStats {
	return domain.CorpusStats{TotalChunks: 100, AvgTermCount: 50}
}

func TestScoreAll_RareTermOutranksCommon(t *testing.T) {
	s := NewScorer(0, 0)
	postings := map[string][]domain.Posting{
		"rare":   {{ChunkID: 1, TF: 1}},
		"common": {{ChunkID: 2, TF: 1}},
	}
	df := map[string]int{"rare": 2, "common": 80}
	lens := map[int64]int{1: 50, 2: 50}

	scores := s.ScoreAll([]string{"rare", "common"}, postings, df, lens, defaultStats())

	if scores[1] <= scores[2] {
		t.Fatalf("rare term should outscore common: rare=%v common=%v", scores[1], scores[2])
	}
}

func TestScoreAll_TermFrequencySaturates(t *testing.T) {
	s := NewScorer(0, 0)
	postings := map[string][]domain.Posting{
		"term": {
			{ChunkID: 1, TF: 1},
			{ChunkID: 2, TF: 2},
			{ChunkID: 3, TF: 8},
		},
	}
	df := map[string]int{"term": 3}
	lens := map[int64]int{1: 50, 2: 50, 3: 50}

	scores := s.ScoreAll([]string{"term"}, postings, df, lens, defaultStats())

	if !(scores[1] < scores[2] && scores[2] < scores[3]) {
		t.Fatalf("scores must grow with tf: %v", scores)
	}
	// Quadrupling tf from 2 to 8 must gain less than the 1 -> 2 step
	// scaled up: saturation, not linearity.
	if scores[3] >= 4*scores[1] {
		t.Fatalf("tf contribution must saturate: tf1=%v tf8=%v", scores[1], scores[3])
	}
}

func TestScoreAll_LengthNormalization(t *testing.T) {
	s := NewScorer(0, 0)
	postings := map[string][]domain.Posting{
		"term": {
			{ChunkID: 1, TF: 2},
			{ChunkID: 2, TF: 2},
		},
	}
	df := map[string]int{"term": 2}
	lens := map[int64]int{1: 20, 2: 200}

	scores := s.ScoreAll([]string{"term"}, postings, df, lens, defaultStats())

	if scores[1] <= scores[2] {
		t.Fatalf("shorter chunk with equal tf must score higher: short=%v long=%v", scores[1], scores[2])
	}
}

func TestScoreAll_DuplicateTermsCountOnce(t *testing.T) {
	s := NewScorer(0, 0)
	postings := map[string][]domain.Posting{"term": {{ChunkID: 1, TF: 3}}}
	df := map[string]int{"term": 1}
	lens := map[int64]int{1: 50}

	once := s.ScoreAll([]string{"term"}, postings, df, lens, defaultStats())
	twice := s.ScoreAll([]string{"term", "term"}, postings, df, lens, defaultStats())

	if math.Abs(once[1]-twice[1]) > 1e-12 {
		t.Fatalf("duplicate query terms must not double-count: %v vs %v", once[1], twice[1])
	}
}

func TestScoreAll_IDFStaysPositive(t *testing.T) {
	s := NewScorer(0, 0)
	// Term present in every chunk of the corpus.
	postings := map[string][]domain.Posting{"the": {{ChunkID: 1, TF: 1}}}
	df := map[string]int{"the": 100}
	lens := map[int64]int{1: 50}

	scores := s.ScoreAll([]string{"the"}, postings, df, lens, defaultStats())

	if scores[1] <= 0 {
		t.Fatalf("ubiquitous term must still score positive, got %v", scores[1])
	}
}

func TestScoreAll_EmptyCorpus(t *testing.T) {
	s := NewScorer(0, 0)
	scores := s.ScoreAll([]string{"term"}, nil, nil, nil, domain.CorpusStats{})
	if len(scores) != 0 {
		t.Fatalf("empty corpus must produce no scores, got %v", scores)
	}
}

func TestNormalize(t *testing.T) {
	scores := map[int64]float64{1: 4, 2: 2, 3: 1}
	normalized := Normalize(scores)

	if normalized[1] != 1 {
		t.Fatalf("max must normalize to 1, got %v", normalized[1])
	}
	if normalized[2] != 0.5 || normalized[3] != 0.25 {
		t.Fatalf("unexpected normalized scores: %v", normalized)
	}

	empty := Normalize(map[int64]float64{})
	if len(empty) != 0 {
		t.Fatalf("empty input must stay empty")
	}
}
