package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loci-labs/loci/internal/core/domain"
)

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	results []domain.ScoredResult
	err     error

	gotRaw  string
	gotOpts domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, raw string, opts domain.SearchOptions) ([]domain.ScoredResult, error) {
	m.gotRaw = raw
	m.gotOpts = opts
	return m.results, m.err
}

func setupSearchTest(results []domain.ScoredResult, err error) (*mockSearchService, func()) {
	old := searchService
	mock := &mockSearchService{results: results, err: err}
	searchService = mock
	searchTopK, searchMode, searchProject, searchJSON = 0, "", "", false
	return mock, func() { searchService = old }
}

func searchFixture() []domain.ScoredResult {
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return []domain.ScoredResult{
		{
			Chunk: domain.Chunk{
				ID:         1,
				DocumentID: 10,
				Content:    "Install the toolchain and set GOPATH before anything else.",
				Locator:    domain.HeadingLocator{Path: []string{"Setup", "Install"}, StartLine: 10, EndLine: 18},
				TokenCount: 9,
			},
			Document: domain.Document{
				ID:         10,
				SourcePath: "notes/setup.md",
				Project:    "work",
				SourceType: domain.SourceTypeMarkdown,
				SourceDate: &date,
			},
			Score: 0.79,
			Breakdown: domain.ScoreBreakdown{
				Vector: 0.4, VectorNorm: 0.7,
				Keyword: 1.3, KeywordNorm: 1,
				RecencyBoost: 1.05, ProjectBoost: 1,
			},
		},
		{
			Chunk: domain.Chunk{
				ID:         2,
				DocumentID: 20,
				Content:    "Second chunk.",
				Locator:    domain.LineLocator{StartLine: 1, EndLine: 4},
				ChunkIndex: 1,
			},
			Document: domain.Document{ID: 20, SourcePath: "recipes/soup.md", SourceType: domain.SourceTypeMarkdown},
			Score:    0.41,
			Breakdown: domain.ScoreBreakdown{
				VectorNorm: 0.5, KeywordNorm: 0.3,
				RecencyBoost: 1, ProjectBoost: 1,
			},
		},
	}
}

func TestSearchCmd_Table(t *testing.T) {
	mock, cleanup := setupSearchTest(searchFixture(), nil)
	defer cleanup()

	out, err := execute(t, "search", "toolchain setup")

	require.NoError(t, err)
	assert.Equal(t, "toolchain setup", mock.gotRaw)
	assert.Contains(t, out, "[1] notes/setup.md · Setup > Install (lines 10-18)  (0.790)")
	assert.Contains(t, out, "vector 0.70 · keyword 1.00 · boost x1.05")
	assert.Contains(t, out, "Install the toolchain")
	assert.Contains(t, out, "[2] recipes/soup.md · lines 1-4  (0.410)")
	assert.Contains(t, out, "vector 0.50 · keyword 0.30\n")
}

func TestSearchCmd_JSON(t *testing.T) {
	_, cleanup := setupSearchTest(searchFixture(), nil)
	defer cleanup()

	out, err := execute(t, "search", "toolchain", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"SourcePath": "notes/setup.md"`)
	assert.Contains(t, out, `"Score": 0.79`)
}

func TestSearchCmd_FlagsCarry(t *testing.T) {
	mock, cleanup := setupSearchTest(nil, nil)
	defer cleanup()

	out, err := execute(t, "search", "alpha", "-k", "3", "--mode", "keyword", "--project", "work")

	require.NoError(t, err)
	assert.Contains(t, out, "No results.")
	assert.Equal(t, 3, mock.gotOpts.TopK)
	assert.Equal(t, domain.SearchModeKeyword, mock.gotOpts.Mode)
	assert.Equal(t, "work", mock.gotOpts.BoostProject)
}

func TestSearchCmd_ServiceError(t *testing.T) {
	_, cleanup := setupSearchTest(nil, domain.ErrEmbeddingUnavailable)
	defer cleanup()

	_, err := execute(t, "search", "alpha", "--mode", "vector")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	old := searchService
	searchService = nil
	defer func() { searchService = old }()

	_, err := execute(t, "search", "alpha")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	_, cleanup := setupSearchTest(nil, nil)
	defer cleanup()

	_, err := execute(t, "search")

	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet(" a\n b\t c "))

	long := strings.Repeat("word ", 60)
	s := snippet(long)
	assert.LessOrEqual(t, len([]rune(s)), 141)
	assert.True(t, strings.HasSuffix(s, "…"))
}
