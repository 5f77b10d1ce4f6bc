package queryparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loci-labs/loci/internal/core/domain"
)

// TestParse_BareTerms tests that plain words become lowercased terms.
func TestParse_BareTerms(t *testing.T) {
	q, err := Parse("Database Connection pooling")
	require.NoError(t, err)

	assert.Equal(t, []string{"database", "connection", "pooling"}, q.Terms)
	assert.Empty(t, q.Phrases)
	assert.Empty(t, q.Excludes)
	assert.True(t, q.Filters.IsZero())
}

// TestParse_Phrases tests quoted phrase extraction with original casing.
func TestParse_Phrases(t *testing.T) {
	q, err := Parse(`"Connection Pooling" tips "write ahead log"`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Connection Pooling", "write ahead log"}, q.Phrases)
	assert.Equal(t, []string{"tips"}, q.Terms)
}

// TestParse_Exclusions tests -term handling.
func TestParse_Exclusions(t *testing.T) {
	q, err := Parse("cache -Redis -memcached")
	require.NoError(t, err)

	assert.Equal(t, []string{"cache"}, q.Terms)
	assert.Equal(t, []string{"redis", "memcached"}, q.Excludes)
}

// TestParse_Filters tests each recognized filter key.
func TestParse_Filters(t *testing.T) {
	q, err := Parse("meeting project:work type:markdown lang:EN after:2024-01-01 before:2024-06-30")
	require.NoError(t, err)

	assert.Equal(t, []string{"meeting"}, q.Terms)
	assert.Equal(t, []string{"work"}, q.Filters.Projects)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeMarkdown}, q.Filters.SourceTypes)
	assert.Equal(t, []string{"en"}, q.Filters.Languages)

	require.NotNil(t, q.Filters.After)
	require.NotNil(t, q.Filters.Before)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *q.Filters.After)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), *q.Filters.Before)
}

// TestParse_QuotedFilterValue tests project:"..." values with spaces.
func TestParse_QuotedFilterValue(t *testing.T) {
	q, err := Parse(`notes project:"client acme"`)
	require.NoError(t, err)

	assert.Equal(t, []string{"client acme"}, q.Filters.Projects)
	assert.Equal(t, []string{"notes"}, q.Terms)
}

// TestParse_FiltersOnly tests that a query with no scored terms is valid.
func TestParse_FiltersOnly(t *testing.T) {
	q, err := Parse("project:work type:pdf")
	require.NoError(t, err)

	assert.Empty(t, q.Terms)
	assert.Empty(t, q.Phrases)
	assert.False(t, q.Filters.IsZero())
}

// TestParse_ColonWordsStayTerms tests that words with non-alphabetic
// prefixes before a colon are searched, not treated as filters.
func TestParse_ColonWordsStayTerms(t *testing.T) {
	q, err := Parse("standup 10:30")
	require.NoError(t, err)

	assert.Equal(t, []string{"standup", "10:30"}, q.Terms)
}

// TestParse_KitchenSink tests a query combining every construct.
func TestParse_KitchenSink(t *testing.T) {
	q, err := Parse(`"connection pooling" database -postgres project:work type:markdown after:2024-01-01`)
	require.NoError(t, err)

	assert.Equal(t, "connection pooling", q.Phrases[0])
	assert.Equal(t, []string{"database"}, q.Terms)
	assert.Equal(t, []string{"postgres"}, q.Excludes)
	assert.Equal(t, []string{"work"}, q.Filters.Projects)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeMarkdown}, q.Filters.SourceTypes)
	require.NotNil(t, q.Filters.After)
}

// TestParse_PreservesRaw tests that the untouched input survives on the query.
func TestParse_PreservesRaw(t *testing.T) {
	raw := `  "exact phrase"  project:work  `
	q, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, q.Raw)
}

// TestParse_Errors tests every rejection path and the offending fragment.
func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fragment string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"unterminated phrase", `database "connection pooling`, `"connection pooling`},
		{"empty phrase", `find ""`, `""`},
		{"dangling dash", "cache -", "-"},
		{"dash before space", "cache - redis", "-"},
		{"phrase exclusion", `cache -"redis cluster"`, `-"`},
		{"unknown key", "color:red", "color:red"},
		{"duplicate project", "project:a project:b", "project:b"},
		{"duplicate date", "after:2024-01-01 after:2024-02-01", "after:2024-02-01"},
		{"bad date", "after:next-week", "after:next-week"},
		{"bad type", "type:song", "type:song"},
		{"missing value at end", "notes project:", "project:"},
		{"missing value before word", "project: work", "project:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			var perr *domain.QueryParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.fragment, perr.Fragment)
		})
	}
}

// TestParse_ErrorPosition tests that Pos points at the failing byte.
func TestParse_ErrorPosition(t *testing.T) {
	_, err := Parse(`notes color:red`)
	var perr *domain.QueryParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 6, perr.Pos)
}
