// Package domain defines the core entities of the loci retrieval engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an indexed source document with metadata
//   - Chunk: the unit of retrieval, pinned to its origin by a Locator
//   - Locator: a closed union of citation positions (heading path, page,
//     paragraph range, sheet/cell range, section, line range)
//   - Query: a parsed search request with phrases, exclusions and filters
//   - ScoredResult: a ranked hit with its full score breakdown
//   - IngestReport: the outcome of one indexing run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
