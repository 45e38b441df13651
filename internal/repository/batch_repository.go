package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wisgen/internal/model"

	"github.com/lib/pq"
)

var ErrBatchNotFound = errors.New("batch not found")

// BatchStore persists the manifest of pull and analyze runs.
type BatchStore interface {
	SaveBatch(ctx context.Context, batch *model.Batch) error
	GetBatches(ctx context.Context, limit, offset int) ([]model.Batch, error)
	GetBatchTotal(ctx context.Context) (int, error)
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
}

const batchSchema = `
CREATE TABLE IF NOT EXISTS ingest_batch (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	report_file TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_batch_entry (
	id                 BIGSERIAL PRIMARY KEY,
	batch_id           UUID NOT NULL REFERENCES ingest_batch(id) ON DELETE CASCADE,
	filename           TEXT NOT NULL,
	processed_filename TEXT NOT NULL,
	status             TEXT NOT NULL,
	error              TEXT NOT NULL DEFAULT '',
	fallback           BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_ingest_batch_started_at ON ingest_batch(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_ingest_batch_entry_batch_id ON ingest_batch_entry(batch_id);
`

// BatchRepository stores batches in PostgreSQL.
type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, batchSchema); err != nil {
		return fmt.Errorf("failed to create manifest schema: %w", err)
	}
	return nil
}

func (r *BatchRepository) SaveBatch(ctx context.Context, batch *model.Batch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ingest_batch(id, kind, status, message, report_file, started_at, finished_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			message = EXCLUDED.message,
			report_file = EXCLUDED.report_file,
			finished_at = EXCLUDED.finished_at
	`, batch.ID, batch.Kind, batch.Status, batch.Message, batch.ReportFile, batch.StartedAt, batch.FinishedAt)
	if err != nil {
		return err
	}

	for i := range batch.Entries {
		e := &batch.Entries[i]
		e.BatchID = batch.ID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO ingest_batch_entry(batch_id, filename, processed_filename, status, error, fallback)
			VALUES($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, e.BatchID, e.Filename, e.ProcessedFilename, e.Status, e.Error, e.Fallback).Scan(&e.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *BatchRepository) GetBatches(ctx context.Context, limit, offset int) ([]model.Batch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, status, message, report_file, started_at, finished_at
		FROM ingest_batch
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		var b model.Batch
		err := rows.Scan(&b.ID, &b.Kind, &b.Status, &b.Message, &b.ReportFile, &b.StartedAt, &b.FinishedAt)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return batches, nil
}

func (r *BatchRepository) GetBatchTotal(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingest_batch`).Scan(&total)
	return total, err
}

func (r *BatchRepository) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	var b model.Batch
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, status, message, report_file, started_at, finished_at
		FROM ingest_batch
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Kind, &b.Status, &b.Message, &b.ReportFile, &b.StartedAt, &b.FinishedAt)
	if err == sql.ErrNoRows || isInvalidUUID(err) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, batch_id, filename, processed_filename, status, error, fallback
		FROM ingest_batch_entry
		WHERE batch_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e model.BatchEntry
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Filename, &e.ProcessedFilename, &e.Status, &e.Error, &e.Fallback); err != nil {
			return nil, err
		}
		b.Entries = append(b.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &b, nil
}

// isInvalidUUID reports a malformed id, which can never match a row.
func isInvalidUUID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
