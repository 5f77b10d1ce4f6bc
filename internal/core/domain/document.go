package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLanguage is assumed when a source carries no language metadata.
const DefaultLanguage = "en"

// Document represents one indexed source document.
// Identity is the (SourcePath, Project) pair; the numeric ID is assigned
// by the store and is stable until the document is deleted.
type Document struct {
	// ID is the store-assigned identifier.
	ID int64

	// SourcePath is the stable identity of the source, typically a
	// file path relative to the indexed root.
	SourcePath string

	// Project is the notebook or vault the document belongs to.
	Project string

	// SourceType classifies the source.
	SourceType SourceType

	// Language is the ISO 639-1 code of the document text.
	Language string

	// SourceDate is the document's own date (authored or captured).
	// Nil means unknown: such documents never receive a recency boost.
	SourceDate *time.Time

	// ContentHash is the sha256 hex digest of the full extracted text.
	// An incoming document with a matching hash is skipped untouched.
	ContentHash string

	// IndexedAt is when the document was first indexed.
	IndexedAt time.Time

	// UpdatedAt is when the document content last changed.
	UpdatedAt time.Time
}

// Chunk is the unit of retrieval: a span of document text small enough
// to embed and score, pinned to its origin by a Locator.
type Chunk struct {
	// ID is the store-assigned identifier. Earlier-indexed chunks have
	// lower IDs; ranking uses the ID as its final tie-break.
	ID int64

	// DocumentID links to the owning Document.
	DocumentID int64

	// Content is the chunk text.
	Content string

	// Locator pins the chunk to a sub-range of the source document.
	Locator Locator

	// ChunkIndex is the 0-based position within the document.
	ChunkIndex int

	// TokenCount is the approximate token count of Content.
	TokenCount int

	// TermCount is the number of keyword terms extracted from Content,
	// including repeats. Keyword scoring uses it for length
	// normalization.
	TermCount int
}

// DocumentMeta carries the caller-supplied identity and metadata of a
// document entering the index, before the store assigns an ID.
type DocumentMeta struct {
	// SourcePath is the stable identity of the source.
	SourcePath string

	// Project is the notebook or vault the document belongs to.
	Project string

	// SourceType classifies the source.
	SourceType SourceType

	// Language is the ISO 639-1 code. Empty means DefaultLanguage.
	Language string

	// SourceDate is the document's own date, nil when unknown.
	SourceDate *time.Time
}

// Normalize fills defaults: empty language becomes DefaultLanguage and
// the language code is lowercased.
func (m *DocumentMeta) Normalize() {
	if m.Language == "" {
		m.Language = DefaultLanguage
	}
	m.Language = strings.ToLower(m.Language)
}

// Validate checks that the metadata identifies a document the engine
// can index. An empty Project is valid: it is the unfiled default.
func (m DocumentMeta) Validate() error {
	if strings.TrimSpace(m.SourcePath) == "" {
		return fmt.Errorf("%w: source path is required", ErrInvalidInput)
	}
	if !m.SourceType.IsValid() {
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidInput, m.SourceType)
	}
	if m.Language != "" && !validLanguage(m.Language) {
		return fmt.Errorf("%w: language %q is not an ISO 639-1 code", ErrInvalidInput, m.Language)
	}
	return nil
}

// validLanguage accepts two lowercase ASCII letters.
func validLanguage(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
