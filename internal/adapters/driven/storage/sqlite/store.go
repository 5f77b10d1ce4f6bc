package sqlite

import (
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/loci-labs/loci/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
)

// Vector index modes. Auto uses the native vec0 index when the build
// and the loaded library support it, and falls back to a brute-force
// scan otherwise. Both backends produce identical orderings.
const (
	VectorModeAuto     = "auto"
	VectorModeNative   = "native"
	VectorModeFallback = "fallback"
)

// DBFileName is the SQLite database file inside the data directory.
const DBFileName = "index.db"

// Store is the SQLite-backed storage providing the document, vector and
// run store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	mode string

	mu sync.Mutex
	// dims is the embedding dimension of the stored vectors, 0 until
	// the first vector is written.
	dims int
	// native is true when the vec0 index is active in this process.
	native bool
	// vecReady is true once vec_chunks is known to exist.
	vecReady bool
}

// Option configures a Store.
type Option func(*Store)

// WithVectorMode forces the vector backend: VectorModeAuto,
// VectorModeNative or VectorModeFallback.
func WithVectorMode(mode string) Option {
	return func(s *Store) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.loci.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".loci")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open(driverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		mode: VectorModeAuto,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.resolveVectorBackend(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.loadDims(); err != nil {
		db.Close()
		return nil, err
	}

	// The vec index is derived data: reconcile it with the embeddings
	// table so switching builds never loses or leaks rows.
	if s.native {
		if s.dims > 0 {
			if err := s.syncVecIndex(); err != nil {
				db.Close()
				return nil, fmt.Errorf("syncing vector index: %w", err)
			}
		} else if err := s.dropStaleVecTable(); err != nil {
			db.Close()
			return nil, fmt.Errorf("dropping stale vector index: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// VectorSearcher returns a VectorSearcher interface backed by this store.
func (s *Store) VectorSearcher() driven.VectorSearcher {
	return &vectorSearcher{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// resolveVectorBackend decides between the native vec0 index and the
// brute-force fallback based on the configured mode and a probe.
func (s *Store) resolveVectorBackend() error {
	switch s.mode {
	case VectorModeFallback:
		s.native = false
	case VectorModeNative:
		if !vecCapable || !s.probeVec() {
			return fmt.Errorf("vector mode %q: %w", s.mode, domain.ErrVectorBackendUnavailable)
		}
		s.native = true
	case VectorModeAuto:
		s.native = vecCapable && s.probeVec()
	default:
		return fmt.Errorf("%w: unknown vector mode %q", domain.ErrInvalidInput, s.mode)
	}
	return nil
}

// probeVec checks whether the vec0 extension answers in this process.
func (s *Store) probeVec() bool {
	var version string
	if err := s.db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		return false
	}
	return version != ""
}

// loadDims reads the embedding dimension from any stored vector.
func (s *Store) loadDims() error {
	var length int
	err := s.db.QueryRow("SELECT length(vector) FROM embeddings LIMIT 1").Scan(&length)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return &domain.StorageError{Op: "reading embedding dimension", Err: err}
	}
	if length%4 != 0 {
		return &domain.StorageError{Op: "reading embedding dimension",
			Err: fmt.Errorf("blob length %d is not a multiple of 4", length)}
	}
	s.dims = length / 4
	return nil
}

// vecTableDims parses the dimension out of the vec_chunks DDL, 0 when
// the table does not exist.
func (s *Store) vecTableDims() (int, error) {
	var ddl string
	err := s.db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'vec_chunks'",
	).Scan(&ddl)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading vec_chunks schema: %w", err)
	}

	var dims int
	idx := strings.Index(ddl, "float[")
	if idx < 0 {
		return 0, fmt.Errorf("vec_chunks schema has no dimension: %s", ddl)
	}
	if _, err := fmt.Sscanf(ddl[idx:], "float[%d]", &dims); err != nil {
		return 0, fmt.Errorf("parsing vec_chunks dimension: %w", err)
	}
	return dims, nil
}

// ensureVecTable makes vec_chunks exist with the given dimension,
// rebuilding it when the dimension changed.
func (s *Store) ensureVecTable(dims int) error {
	current, err := s.vecTableDims()
	if err != nil {
		return err
	}
	if current == dims {
		s.setVecReady()
		return nil
	}
	if current != 0 {
		if _, err := s.db.Exec("DROP TABLE vec_chunks"); err != nil {
			return fmt.Errorf("dropping stale vec_chunks: %w", err)
		}
	}
	_, err = s.db.Exec(fmt.Sprintf(
		"CREATE VIRTUAL TABLE vec_chunks USING vec0(chunk_id INTEGER PRIMARY KEY, embedding float[%d])",
		dims,
	))
	if err != nil {
		return fmt.Errorf("creating vec_chunks: %w", err)
	}
	s.setVecReady()
	return nil
}

// dropStaleVecTable removes a leftover vec_chunks when there are no
// embeddings to mirror, so orphaned rows never answer searches.
func (s *Store) dropStaleVecTable() error {
	current, err := s.vecTableDims()
	if err != nil {
		return err
	}
	if current == 0 {
		return nil
	}
	if _, err := s.db.Exec("DROP TABLE vec_chunks"); err != nil {
		return fmt.Errorf("dropping vec_chunks: %w", err)
	}
	return nil
}

func (s *Store) setVecReady() {
	s.mu.Lock()
	s.vecReady = true
	s.mu.Unlock()
}

// vecActive reports whether vec_chunks rows must be maintained
// alongside embedding writes and deletes.
func (s *Store) vecActive() bool {
	if !s.native {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vecReady
}

// syncVecIndex reconciles vec_chunks with the embeddings table: rows
// written by fallback builds are inserted, rows whose chunks are gone
// are removed.
func (s *Store) syncVecIndex() error {
	if err := s.ensureVecTable(s.dims); err != nil {
		return err
	}
	if _, err := s.db.Exec(`
		DELETE FROM vec_chunks
		WHERE chunk_id NOT IN (SELECT chunk_id FROM embeddings)
	`); err != nil {
		return fmt.Errorf("removing orphaned vec rows: %w", err)
	}
	if _, err := s.db.Exec(`
		INSERT INTO vec_chunks (chunk_id, embedding)
		SELECT e.chunk_id, e.vector FROM embeddings e
		WHERE e.chunk_id NOT IN (SELECT chunk_id FROM vec_chunks)
	`); err != nil {
		return fmt.Errorf("backfilling vec rows: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a little-endian byte
// slice for storage. The layout matches what vec0 expects, so the same
// blob feeds both tables.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a stored blob back to []float32.
func bytesToFloat32Slice(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%4 != 0 {
		return nil, &domain.StorageError{Op: "decoding vector blob",
			Err: fmt.Errorf("blob length %d is not a multiple of 4", len(data))}
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// int64Args widens IDs for use as query arguments.
func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// stringArgs widens strings for use as query arguments.
func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
