package driven

import (
	"context"

	"github.com/loci-labs/loci/internal/core/domain"
)

// Parser extracts ordered sections from one kind of raw source. Every
// section carries a Locate function so chunks can cite exact positions.
type Parser interface {
	// Name identifies the parser in logs and reports.
	Name() string

	// Supports reports whether the parser handles the given source.
	Supports(src domain.RawSource) bool

	// Parse turns raw bytes into sections plus refined metadata. The
	// identity pair (source path, project) is never changed.
	Parse(ctx context.Context, src domain.RawSource) (*domain.ParsedDocument, error)
}

// ParserRegistry selects a parser for a source.
type ParserRegistry interface {
	// ParserFor returns the first parser supporting the source, or
	// ErrNotFound when no parser does.
	ParserFor(src domain.RawSource) (Parser, error)
}
