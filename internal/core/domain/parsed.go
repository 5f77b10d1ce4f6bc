package domain

import "strings"

// RawSource is an unparsed source handed to the indexer: raw bytes plus
// caller-supplied identity and metadata.
type RawSource struct {
	// Path is where the bytes came from, used in reports.
	Path string

	// Data is the raw content.
	Data []byte

	// Meta is the document identity and metadata. Parsers may refine
	// it (e.g. a frontmatter date) but never change the identity pair.
	Meta DocumentMeta
}

// Section is one ordered span of extracted text together with the
// mapping from byte ranges of that text back to source positions.
type Section struct {
	// Text is the extracted text of the section.
	Text string

	// Locate maps the byte range [start, end) within Text to a
	// Locator. Implementations return a *LocatorError when the range
	// cannot be resolved.
	Locate func(start, end int) (Locator, error)
}

// ParsedDocument is what a parser hands the engine: document metadata
// plus ordered sections. Section order is document order; the chunker
// relies on it.
type ParsedDocument struct {
	Meta     DocumentMeta
	Sections []Section
}

// PlainText concatenates section texts in document order, separated by
// blank lines. Content hashing runs over this exact byte sequence, so
// two parses of the same source always hash identically.
func (d *ParsedDocument) PlainText() string {
	texts := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, "\n\n")
}

// ChunkDraft is a chunk before persistence, complete as produced by the
// chunker: content, locator, position and the term statistics the store
// writes into the postings table.
type ChunkDraft struct {
	Content    string
	Locator    Locator
	ChunkIndex int

	// TokenCount is the approximate whitespace-token count.
	TokenCount int

	// TermCount is the number of normalized terms, the document length
	// used by keyword scoring.
	TermCount int

	// TermFreqs maps normalized term to its occurrences in Content.
	TermFreqs map[string]int
}
