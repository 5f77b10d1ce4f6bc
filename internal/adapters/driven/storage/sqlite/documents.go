package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/keyword"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// UpsertDocument replaces a document and all derived rows in a single
// transaction keyed on (source path, project).
func (s *documentStore) UpsertDocument(
	ctx context.Context,
	meta domain.DocumentMeta,
	contentHash string,
	drafts []domain.ChunkDraft,
	vectors [][]float32,
) (domain.DocUpsert, error) {
	meta.Normalize()
	if err := meta.Validate(); err != nil {
		return domain.DocUpsert{}, err
	}
	if len(vectors) > 0 && len(vectors) != len(drafts) {
		return domain.DocUpsert{}, fmt.Errorf("%w: %d drafts but %d vectors",
			domain.ErrInvalidInput, len(drafts), len(vectors))
	}

	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
		for _, v := range vectors {
			if len(v) != dims {
				return domain.DocUpsert{}, &domain.DimensionMismatchError{Want: dims, Got: len(v)}
			}
		}

		s.store.mu.Lock()
		stored := s.store.dims
		s.store.mu.Unlock()
		if stored != 0 && dims != stored {
			return domain.DocUpsert{}, &domain.DimensionMismatchError{Want: stored, Got: dims}
		}

		// Virtual table DDL stays outside the transaction.
		if s.store.native {
			if err := s.store.ensureVecTable(dims); err != nil {
				return domain.DocUpsert{}, &domain.StorageError{Op: "preparing vector index", Err: err}
			}
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DocUpsert{}, &domain.StorageError{Op: "beginning upsert", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var docID int64
	created := false

	err = tx.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE source_path = ? AND project = ?",
		meta.SourcePath, meta.Project,
	).Scan(&docID)
	switch {
	case err == sql.ErrNoRows:
		created = true
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents
				(source_path, project, source_type, language, source_date, content_hash, indexed_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, meta.SourcePath, meta.Project, string(meta.SourceType), meta.Language,
			nullTime(meta.SourceDate), contentHash, now, now)
		if err != nil {
			return domain.DocUpsert{}, &domain.StorageError{Op: "inserting document", Err: err}
		}
		docID, err = res.LastInsertId()
		if err != nil {
			return domain.DocUpsert{}, &domain.StorageError{Op: "reading document id", Err: err}
		}
	case err != nil:
		return domain.DocUpsert{}, &domain.StorageError{Op: "resolving document", Err: err}
	default:
		if err := s.deleteDerivedRows(ctx, tx, docID); err != nil {
			return domain.DocUpsert{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET source_type = ?, language = ?, source_date = ?, content_hash = ?, updated_at = ?
			WHERE id = ?
		`, string(meta.SourceType), meta.Language, nullTime(meta.SourceDate),
			contentHash, now, docID); err != nil {
			return domain.DocUpsert{}, &domain.StorageError{Op: "updating document", Err: err}
		}
	}

	if err := s.insertChunks(ctx, tx, docID, drafts, vectors); err != nil {
		return domain.DocUpsert{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.DocUpsert{}, &domain.StorageError{Op: "committing upsert", Err: err}
	}

	if dims > 0 {
		s.store.mu.Lock()
		s.store.dims = dims
		s.store.mu.Unlock()
	}

	return domain.DocUpsert{DocumentID: docID, Created: created, Chunks: len(drafts)}, nil
}

// deleteDerivedRows removes a document's chunks; embeddings and
// postings cascade, vec rows are removed explicitly.
func (s *documentStore) deleteDerivedRows(ctx context.Context, tx *sql.Tx, docID int64) error {
	if s.store.vecActive() {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_chunks
			WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)
		`, docID); err != nil {
			return &domain.StorageError{Op: "deleting vec rows", Err: err}
		}
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
		return &domain.StorageError{Op: "deleting chunks", Err: err}
	}
	return nil
}

// insertChunks writes chunk, posting, embedding and vec rows for the
// drafts inside the upsert transaction.
func (s *documentStore) insertChunks(
	ctx context.Context,
	tx *sql.Tx,
	docID int64,
	drafts []domain.ChunkDraft,
	vectors [][]float32,
) error {
	if len(drafts) == 0 {
		return nil
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks
			(document_id, content, locator_kind, locator_json, chunk_index, token_count, term_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return &domain.StorageError{Op: "preparing chunk insert", Err: err}
	}
	defer chunkStmt.Close()

	postingStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO postings (term, chunk_id, tf) VALUES (?, ?, ?)")
	if err != nil {
		return &domain.StorageError{Op: "preparing posting insert", Err: err}
	}
	defer postingStmt.Close()

	writeVectors := len(vectors) > 0
	writeVec := writeVectors && s.store.native

	for i, draft := range drafts {
		kind, payload, err := domain.EncodeLocator(draft.Locator)
		if err != nil {
			return err
		}

		res, err := chunkStmt.ExecContext(ctx, docID, draft.Content, string(kind),
			string(payload), draft.ChunkIndex, draft.TokenCount, draft.TermCount)
		if err != nil {
			return &domain.StorageError{Op: "inserting chunk", Err: err}
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return &domain.StorageError{Op: "reading chunk id", Err: err}
		}

		for term, tf := range draft.TermFreqs {
			if _, err := postingStmt.ExecContext(ctx, term, chunkID, tf); err != nil {
				return &domain.StorageError{Op: "inserting posting", Err: err}
			}
		}

		if writeVectors {
			blob := float32SliceToBytes(vectors[i])
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO embeddings (chunk_id, vector) VALUES (?, ?)",
				chunkID, blob); err != nil {
				return &domain.StorageError{Op: "inserting embedding", Err: err}
			}
			if writeVec {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
					chunkID, blob); err != nil {
					return &domain.StorageError{Op: "inserting vec row", Err: err}
				}
			}
		}
	}

	return nil
}

// ContentHash returns the stored hash for the identity pair.
func (s *documentStore) ContentHash(ctx context.Context, sourcePath, project string) (string, error) {
	var hash string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT content_hash FROM documents WHERE source_path = ? AND project = ?",
		sourcePath, project,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", &domain.StorageError{Op: "reading content hash", Err: err}
	}
	return hash, nil
}

// Document retrieves a document by its identity pair.
func (s *documentStore) Document(ctx context.Context, sourcePath, project string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_path, project, source_type, language, source_date, content_hash, indexed_at, updated_at
		FROM documents WHERE source_path = ? AND project = ?
	`, sourcePath, project)

	return scanDocumentRow(row)
}

// DocumentByID retrieves a document by row ID.
func (s *documentStore) DocumentByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_path, project, source_type, language, source_date, content_hash, indexed_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocumentRow(row)
}

// Chunks retrieves all chunks for a document in chunk order.
func (s *documentStore) Chunks(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, content, locator_kind, locator_json, chunk_index, token_count, term_count
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying chunks", Err: err}
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating chunks", Err: err}
	}

	return chunks, nil
}

// ChunkByID retrieves a single chunk.
func (s *documentStore) ChunkByID(ctx context.Context, id int64) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, content, locator_kind, locator_json, chunk_index, token_count, term_count
		FROM chunks WHERE id = ?
	`, id)

	var chunk domain.Chunk
	var kind, payload string
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &kind,
		&payload, &chunk.ChunkIndex, &chunk.TokenCount, &chunk.TermCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "scanning chunk", Err: err}
	}

	locator, err := domain.DecodeLocator(domain.LocatorKind(kind), []byte(payload))
	if err != nil {
		return nil, &domain.StorageError{Op: "decoding locator", Err: err}
	}
	chunk.Locator = locator

	return &chunk, nil
}

// DeleteDocument removes a document and every derived row.
func (s *documentStore) DeleteDocument(ctx context.Context, sourcePath, project string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "beginning delete", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	var docID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE source_path = ? AND project = ?",
		sourcePath, project,
	).Scan(&docID)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return &domain.StorageError{Op: "resolving document", Err: err}
	}

	if err := s.deleteDerivedRows(ctx, tx, docID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", docID); err != nil {
		return &domain.StorageError{Op: "deleting document", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "committing delete", Err: err}
	}
	return nil
}

// ListDocuments returns documents ordered by project then source path.
func (s *documentStore) ListDocuments(ctx context.Context, project string) ([]domain.Document, error) {
	query := `
		SELECT id, source_path, project, source_type, language, source_date, content_hash, indexed_at, updated_at
		FROM documents`
	var args []any
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY project, source_path"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying documents", Err: err}
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating documents", Err: err}
	}

	return docs, nil
}

// CountDocuments sizes the document table.
func (s *documentStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, &domain.StorageError{Op: "counting documents", Err: err}
	}
	return n, nil
}

// CountChunks sizes the chunk table.
func (s *documentStore) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, &domain.StorageError{Op: "counting chunks", Err: err}
	}
	return n, nil
}

// EligibleChunks returns chunks passing the query's hard filters,
// phrase requirements and exclusions. SQL narrows by metadata and an
// ASCII phrase prefilter; the exact case-insensitive checks finish in
// Go so Unicode folding stays consistent.
func (s *documentStore) EligibleChunks(ctx context.Context, q domain.Query) ([]domain.CandidateChunk, error) {
	f := q.Filters
	if f.Unsatisfiable() {
		return nil, nil
	}

	var sb strings.Builder
	var args []any
	sb.WriteString(`
		SELECT c.id, c.document_id, c.content, c.term_count, d.project, d.source_date
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE 1 = 1`)

	if len(f.Projects) > 0 {
		sb.WriteString(" AND d.project IN (" + placeholders(len(f.Projects)) + ")")
		args = append(args, stringArgs(f.Projects)...)
	}
	if len(f.SourceTypes) > 0 {
		sb.WriteString(" AND d.source_type IN (" + placeholders(len(f.SourceTypes)) + ")")
		for _, st := range f.SourceTypes {
			args = append(args, string(st))
		}
	}
	if len(f.Languages) > 0 {
		sb.WriteString(" AND d.language IN (" + placeholders(len(f.Languages)) + ")")
		args = append(args, stringArgs(f.Languages)...)
	}
	if f.After != nil {
		sb.WriteString(" AND d.source_date IS NOT NULL AND d.source_date >= ?")
		args = append(args, f.After.UTC())
	}
	if f.Before != nil {
		// Inclusive of the named day.
		sb.WriteString(" AND d.source_date IS NOT NULL AND d.source_date < ?")
		args = append(args, f.Before.UTC().AddDate(0, 0, 1))
	}
	for _, phrase := range q.Phrases {
		// SQLite lower() only folds ASCII, so the prefilter skips
		// phrases that need real Unicode folding.
		if isASCII(phrase) {
			sb.WriteString(" AND instr(lower(c.content), ?) > 0")
			args = append(args, strings.ToLower(phrase))
		}
	}
	sb.WriteString(" ORDER BY c.id")

	rows, err := s.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying candidates", Err: err}
	}
	defer rows.Close()

	var candidates []domain.CandidateChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.CandidateChunk
		var sourceDate sql.NullTime
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Content,
			&c.TermCount, &c.Project, &sourceDate); err != nil {
			return nil, &domain.StorageError{Op: "scanning candidate", Err: err}
		}
		if sourceDate.Valid {
			t := sourceDate.Time.UTC()
			c.SourceDate = &t
		}

		if !passesTextChecks(c.Content, q) {
			continue
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating candidates", Err: err}
	}

	return candidates, nil
}

// passesTextChecks applies the exact phrase and exclusion semantics.
func passesTextChecks(content string, q domain.Query) bool {
	for _, phrase := range q.Phrases {
		if !keyword.HasPhrase(content, phrase) {
			return false
		}
	}
	for _, term := range q.Excludes {
		if keyword.ContainsToken(content, term) {
			return false
		}
	}
	return true
}

// TermIndex returns postings restricted to the candidate chunks plus
// corpus-wide frequencies and stats.
func (s *documentStore) TermIndex(ctx context.Context, terms []string, chunkIDs []int64) (*domain.TermIndex, error) {
	idx := &domain.TermIndex{
		Postings: make(map[string][]domain.Posting),
		DF:       make(map[string]int),
	}

	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(AVG(term_count), 0) FROM chunks",
	).Scan(&idx.Stats.TotalChunks, &idx.Stats.AvgTermCount); err != nil {
		return nil, &domain.StorageError{Op: "reading corpus stats", Err: err}
	}

	unique := dedupe(terms)
	if len(unique) == 0 {
		return idx, nil
	}
	termArgs := stringArgs(unique)

	dfRows, err := s.store.db.QueryContext(ctx,
		"SELECT term, COUNT(*) FROM postings WHERE term IN ("+placeholders(len(unique))+") GROUP BY term",
		termArgs...)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying term frequencies", Err: err}
	}
	defer dfRows.Close()
	for dfRows.Next() {
		var term string
		var df int
		if err := dfRows.Scan(&term, &df); err != nil {
			return nil, &domain.StorageError{Op: "scanning term frequency", Err: err}
		}
		idx.DF[term] = df
	}
	if err := dfRows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating term frequencies", Err: err}
	}

	if len(chunkIDs) == 0 {
		return idx, nil
	}

	query := "SELECT term, chunk_id, tf FROM postings WHERE term IN (" +
		placeholders(len(unique)) + ") AND chunk_id IN (" + placeholders(len(chunkIDs)) + ")"
	args := append(termArgs, int64Args(chunkIDs)...)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying postings", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var term string
		var p domain.Posting
		if err := rows.Scan(&term, &p.ChunkID, &p.TF); err != nil {
			return nil, &domain.StorageError{Op: "scanning posting", Err: err}
		}
		idx.Postings[term] = append(idx.Postings[term], p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating postings", Err: err}
	}

	return idx, nil
}

// Close releases the underlying database.
func (s *documentStore) Close() error {
	return s.store.Close()
}

// ==================== Scan Helpers ====================

// scanDocumentRow scans a single document row.
func scanDocumentRow(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var sourceType string
	var sourceDate sql.NullTime

	if err := row.Scan(&doc.ID, &doc.SourcePath, &doc.Project, &sourceType, &doc.Language,
		&sourceDate, &doc.ContentHash, &doc.IndexedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "scanning document", Err: err}
	}

	doc.SourceType = domain.SourceType(sourceType)
	if sourceDate.Valid {
		t := sourceDate.Time.UTC()
		doc.SourceDate = &t
	}
	return &doc, nil
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var sourceType string
	var sourceDate sql.NullTime

	if err := rows.Scan(&doc.ID, &doc.SourcePath, &doc.Project, &sourceType, &doc.Language,
		&sourceDate, &doc.ContentHash, &doc.IndexedAt, &doc.UpdatedAt); err != nil {
		return nil, &domain.StorageError{Op: "scanning document", Err: err}
	}

	doc.SourceType = domain.SourceType(sourceType)
	if sourceDate.Valid {
		t := sourceDate.Time.UTC()
		doc.SourceDate = &t
	}
	return &doc, nil
}

// scanChunk scans a chunk from *sql.Rows, decoding its locator.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var kind, payload string

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &kind,
		&payload, &chunk.ChunkIndex, &chunk.TokenCount, &chunk.TermCount); err != nil {
		return nil, &domain.StorageError{Op: "scanning chunk", Err: err}
	}

	locator, err := domain.DecodeLocator(domain.LocatorKind(kind), []byte(payload))
	if err != nil {
		return nil, &domain.StorageError{Op: "decoding locator", Err: err}
	}
	chunk.Locator = locator

	return &chunk, nil
}

// nullTime renders a *time.Time as a nullable query argument.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// dedupe removes duplicate terms preserving order.
func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	var out []string //nolint:prealloc // duplicates unknown
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
