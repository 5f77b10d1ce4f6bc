// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: document, chunk and posting persistence
//   - VectorSearcher: similarity search over stored embeddings
//   - EmbeddingService: turns text into vectors
//   - Parser / ParserRegistry: extract sections from raw sources
//   - RunStore: ingestion run history
//
// The engine still degrades gracefully at runtime: when the embedding
// provider is unreachable, hybrid search falls back to keyword-only and
// says so, and the vector searcher falls back from the native index to
// brute force.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter or parser package
package driven
