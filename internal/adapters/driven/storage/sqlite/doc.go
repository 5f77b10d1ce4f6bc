// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// A single database connection backs multiple store interfaces:
//
//   - DocumentStore: document, chunk, posting and embedding persistence
//   - VectorSearcher: nearest-neighbor search over stored embeddings
//   - RunStore: ingestion run report persistence
//
// # Drivers
//
// The driver is picked at build time. CGO builds use mattn/go-sqlite3
// with the sqlite-vec extension loaded, which enables the native vec0
// vector index. Pure Go builds use modernc.org/sqlite and answer vector
// searches with a brute-force scan. Both backends produce identical
// result orderings, so the choice only affects speed.
//
// # Schema
//
// The relational schema is managed through versioned migrations stored
// in the migrations/ directory. The vec_chunks virtual table is not
// part of the migrations: it is derived data, created once the
// embedding dimension is known and reconciled with the embeddings
// table on every native open.
//
// # Data Location
//
// By default, the database is stored at ~/.loci/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
