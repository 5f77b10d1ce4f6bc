// Package chunker splits parsed documents into overlapping,
// locator-carrying chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/keyword"
)

// DefaultTargetTokens is the default chunk size in whitespace tokens.
const DefaultTargetTokens = 512

// DefaultOverlapTokens is the default number of tokens repeated at the
// start of the next chunk.
const DefaultOverlapTokens = 50

// DefaultMinChars is the minimum number of non-whitespace characters a
// chunk must carry to be kept.
const DefaultMinChars = 20

// Splitter turns a parsed document into chunk drafts. Token counting is
// whitespace splitting; the approximation is deliberate and stored
// as-is.
type Splitter struct {
	targetTokens  int
	overlapTokens int
	minChars      int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithTargetTokens sets the chunk size in tokens.
func WithTargetTokens(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.targetTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap between consecutive chunks.
func WithOverlapTokens(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlapTokens = n
		}
	}
}

// WithMinChars sets the minimum non-whitespace character count below
// which a chunk is dropped.
func WithMinChars(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.minChars = n
		}
	}
}

// New creates a Splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		targetTokens:  DefaultTargetTokens,
		overlapTokens: DefaultOverlapTokens,
		minChars:      DefaultMinChars,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't swallow the whole chunk
	if s.overlapTokens >= s.targetTokens {
		s.overlapTokens = s.targetTokens / 4
	}

	return s
}

// token is one whitespace-delimited word with its position in the
// section list.
type token struct {
	section int
	start   int
	end     int
}

// Split cuts the document into chunk drafts. Every byte of section text
// between the first and last token is covered by some chunk before the
// quality filter runs; ChunkIndex is contiguous from 0 over the kept
// chunks. A document with no sections or only whitespace yields zero
// drafts and no error.
func (s *Splitter) Split(doc *domain.ParsedDocument) ([]domain.ChunkDraft, error) {
	tokens := tokenize(doc.Sections)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := s.targetTokens - s.overlapTokens

	var drafts []domain.ChunkDraft
	for begin := 0; ; begin += step {
		end := begin + s.targetTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		draft, err := s.buildDraft(doc.Sections, tokens[begin:end])
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", len(drafts), err)
		}
		if s.keep(draft.Content) {
			draft.ChunkIndex = len(drafts)
			drafts = append(drafts, draft)
		}

		if end == len(tokens) {
			break
		}
	}

	return drafts, nil
}

// tokenize flattens sections into an ordered token stream, keeping byte
// offsets so chunk content and locators can be cut from the originals.
func tokenize(sections []domain.Section) []token {
	var tokens []token
	for si, sec := range sections {
		start := -1
		for i, r := range sec.Text {
			if unicode.IsSpace(r) {
				if start >= 0 {
					tokens = append(tokens, token{section: si, start: start, end: i})
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			tokens = append(tokens, token{section: si, start: start, end: len(sec.Text)})
		}
	}
	return tokens
}

// buildDraft assembles one chunk from a token window. The content is
// the exact source spans, one per contributing section, joined by blank
// lines. The locator comes from the first contributing section over the
// byte span the chunk takes from it.
func (s *Splitter) buildDraft(sections []domain.Section, window []token) (domain.ChunkDraft, error) {
	var parts []string
	var locator domain.Locator

	i := 0
	for i < len(window) {
		j := i
		for j+1 < len(window) && window[j+1].section == window[i].section {
			j++
		}
		sec := sections[window[i].section]
		from, to := window[i].start, window[j].end
		parts = append(parts, sec.Text[from:to])

		if locator == nil {
			loc, err := sec.Locate(from, to)
			if err != nil {
				return domain.ChunkDraft{}, err
			}
			locator = loc
		}
		i = j + 1
	}

	draft := domain.ChunkDraft{
		Content:    strings.Join(parts, "\n\n"),
		Locator:    locator,
		TokenCount: len(window),
	}
	draft.TermFreqs, draft.TermCount = keyword.Counts(draft.Content)
	return draft, nil
}

// keep applies the quality filter. Dropped chunks are never stored.
func (s *Splitter) keep(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}

	visible := 0
	for _, r := range trimmed {
		if !unicode.IsSpace(r) {
			visible++
		}
	}
	if visible < s.minChars {
		return false
	}

	return !isBoilerplate(trimmed)
}
