package domain

import (
	"fmt"
	"time"
)

// SearchMode selects which retrieval legs contribute to ranking.
type SearchMode string

// Supported search modes.
const (
	// SearchModeHybrid combines vector and keyword scores with the
	// configured weights. This is the default.
	SearchModeHybrid SearchMode = "hybrid"

	// SearchModeVector ranks purely by embedding similarity.
	SearchModeVector SearchMode = "vector"

	// SearchModeKeyword ranks purely by keyword relevance.
	SearchModeKeyword SearchMode = "keyword"
)

// IsValid reports whether m is a known search mode.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeHybrid, SearchModeVector, SearchModeKeyword:
		return true
	}
	return false
}

// Query is a parsed search request. All list fields are optional; a
// query consisting solely of filters is valid.
type Query struct {
	// Raw is the original query string before parsing.
	Raw string

	// Terms are the optional scored keywords.
	Terms []string

	// Phrases are quoted phrases. A candidate lacking any phrase as a
	// literal (case-insensitive) substring is excluded before scoring.
	Phrases []string

	// Excludes are "-term" exclusions. A candidate containing any of
	// them as a token is excluded before scoring.
	Excludes []string

	// Filters are the hard metadata filters.
	Filters Filters
}

// Filters restrict the candidate set before any scoring happens. Empty
// fields do not constrain. Dates apply to Document.SourceDate and are
// inclusive.
type Filters struct {
	Projects    []string
	SourceTypes []SourceType
	Languages   []string
	After       *time.Time
	Before      *time.Time
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.Projects) == 0 && len(f.SourceTypes) == 0 &&
		len(f.Languages) == 0 && f.After == nil && f.Before == nil
}

// Merge combines two filter sets with AND semantics: list fields
// intersect when both sides are non-empty, date bounds tighten. The
// result can be unsatisfiable, which simply yields no candidates.
func (f Filters) Merge(other Filters) Filters {
	merged := Filters{
		Projects:    intersectOrUnion(f.Projects, other.Projects),
		Languages:   intersectOrUnion(f.Languages, other.Languages),
		SourceTypes: intersectTypes(f.SourceTypes, other.SourceTypes),
		After:       f.After,
		Before:      f.Before,
	}
	if other.After != nil && (merged.After == nil || other.After.After(*merged.After)) {
		merged.After = other.After
	}
	if other.Before != nil && (merged.Before == nil || other.Before.Before(*merged.Before)) {
		merged.Before = other.Before
	}
	return merged
}

func intersectOrUnion(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	if out == nil {
		// Disjoint sides: keep a sentinel that matches nothing rather
		// than accidentally lifting the constraint.
		out = []string{}
	}
	return out
}

func intersectTypes(a, b []SourceType) []SourceType {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	set := make(map[SourceType]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []SourceType
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []SourceType{}
	}
	return out
}

// Unsatisfiable reports whether merging produced an empty intersection
// that can never match a document.
func (f Filters) Unsatisfiable() bool {
	if f.Projects != nil && len(f.Projects) == 0 {
		return true
	}
	if f.Languages != nil && len(f.Languages) == 0 {
		return true
	}
	if f.SourceTypes != nil && len(f.SourceTypes) == 0 {
		return true
	}
	if f.After != nil && f.Before != nil && f.After.After(*f.Before) {
		return true
	}
	return false
}

// DefaultTopK is the result count when the caller does not ask for one.
const DefaultTopK = 5

// SearchOptions tune one search call.
type SearchOptions struct {
	// TopK is the maximum number of results. Zero means DefaultTopK;
	// negative values are rejected.
	TopK int

	// Mode selects hybrid, pure-vector or pure-keyword ranking.
	// Empty means hybrid.
	Mode SearchMode

	// Filters are merged (AND) with filters parsed from the query.
	Filters Filters

	// BoostProject is the caller's project context. Results from this
	// project receive the same-project boost; it does not filter.
	BoostProject string

	// VectorWeight and KeywordWeight override the configured hybrid
	// weights when both are set (> 0 total). Mode vector and keyword
	// force 1/0 and 0/1 respectively.
	VectorWeight  float64
	KeywordWeight float64
}

// Normalize fills defaults in place.
func (o *SearchOptions) Normalize() {
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.Mode == "" {
		o.Mode = SearchModeHybrid
	}
}

// Validate rejects unusable options.
func (o SearchOptions) Validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidInput, o.TopK)
	}
	if !o.Mode.IsValid() {
		return fmt.Errorf("%w: unknown search mode %q", ErrInvalidInput, o.Mode)
	}
	if o.VectorWeight < 0 || o.KeywordWeight < 0 {
		return fmt.Errorf("%w: negative search weights", ErrInvalidInput)
	}
	return nil
}
