package parsers

import (
	"fmt"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/parsers/markdown"
	"github.com/loci-labs/loci/internal/parsers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry holds an ordered list of parsers and picks the first one
// that supports a source.
type Registry struct {
	parsers []driven.Parser
}

// NewRegistry creates a registry with the given parsers, tried in order.
func NewRegistry(parsers ...driven.Parser) *Registry {
	return &Registry{parsers: parsers}
}

// DefaultRegistry creates a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		markdown.New(),
		plaintext.New(),
	)
}

// ParserFor returns the first parser supporting the source.
func (r *Registry) ParserFor(src domain.RawSource) (driven.Parser, error) {
	for _, p := range r.parsers {
		if p.Supports(src) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no parser for %q", domain.ErrNotFound, src.Path)
}
