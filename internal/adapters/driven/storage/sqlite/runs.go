package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun persists a finished run report.
func (s *runStore) SaveRun(ctx context.Context, report *domain.IngestReport) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("%w: report needs a run ID", domain.ErrInvalidInput)
	}

	errorsJSON, err := json.Marshal(report.Errors)
	if err != nil {
		return &domain.StorageError{Op: "encoding run errors", Err: err}
	}

	if _, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, started_at, finished_at, processed, skipped, failed, errors_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.RunID, report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.Processed, report.Skipped, report.Failed, string(errorsJSON)); err != nil {
		return &domain.StorageError{Op: "inserting run", Err: err}
	}

	return nil
}

// Run retrieves one report by run ID.
func (s *runStore) Run(ctx context.Context, runID string) (*domain.IngestReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, processed, skipped, failed, errors_json
		FROM ingest_runs WHERE id = ?
	`, runID)

	report, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return report, err
}

// ListRuns returns the most recent reports, newest first.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]*domain.IngestReport, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, processed, skipped, failed, errors_json
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "querying runs", Err: err}
	}
	defer rows.Close()

	var reports []*domain.IngestReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterating runs", Err: err}
	}

	return reports, nil
}

// scanRun scans a run row through either *sql.Row or *sql.Rows.
func scanRun(scan func(dest ...any) error) (*domain.IngestReport, error) {
	var report domain.IngestReport
	var errorsJSON string

	err := scan(&report.RunID, &report.StartedAt, &report.FinishedAt,
		&report.Processed, &report.Skipped, &report.Failed, &errorsJSON)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "scanning run", Err: err}
	}

	if errorsJSON != "" && errorsJSON != "[]" {
		if err := json.Unmarshal([]byte(errorsJSON), &report.Errors); err != nil {
			return nil, &domain.StorageError{Op: "decoding run errors", Err: err}
		}
	}
	report.StartedAt = report.StartedAt.UTC()
	report.FinishedAt = report.FinishedAt.UTC()

	return &report, nil
}
