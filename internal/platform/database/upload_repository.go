package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UploadRepository records and lists journal entries.
type UploadRepository interface {
	RecordBatch(ctx context.Context, uploads []*Upload) (uuid.UUID, error)
	ListRecent(ctx context.Context, page PaginationParams) ([]*Upload, error)
	ListByDirectory(ctx context.Context, dir string, page PaginationParams) ([]*Upload, error)
	ListBatch(ctx context.Context, batchID uuid.UUID) ([]*Upload, error)
	Count(ctx context.Context) (int, error)
	Health(ctx context.Context) error
}

type uploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new UploadRepository
func NewUploadRepository(db *sql.DB) UploadRepository {
	return &uploadRepository{db: db}
}

const uploadColumns = `id, batch_id, name, original_name, directory, path, size,
	content_type, mirrored, remote_addr, fields, uploaded_at`

// RecordBatch inserts all uploads of one request in a single transaction
// under a fresh batch id. IDs and timestamps are filled in on the entries.
func (r *uploadRepository) RecordBatch(ctx context.Context, uploads []*Upload) (uuid.UUID, error) {
	if len(uploads) == 0 {
		return uuid.Nil, ErrEmptyBatch
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO uploads (
			id, batch_id, name, original_name, directory, path, size,
			content_type, mirrored, remote_addr, fields
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING uploaded_at
	`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	batchID := uuid.New()
	for _, u := range uploads {
		u.ID = uuid.New()
		u.BatchID = batchID
		if u.ContentType == "" {
			u.ContentType = "application/octet-stream"
		}

		err := stmt.QueryRowContext(ctx,
			u.ID, u.BatchID, u.Name, u.OriginalName, u.Directory, u.Path, u.Size,
			u.ContentType, u.Mirrored, u.RemoteAddr, u.Fields,
		).Scan(&u.UploadedAt)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to record upload %s: %w", u.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit upload batch: %w", err)
	}
	return batchID, nil
}

// ListRecent returns uploads newest first.
func (r *uploadRepository) ListRecent(ctx context.Context, page PaginationParams) ([]*Upload, error) {
	page.Validate()
	return r.scanUploads(ctx,
		`SELECT `+uploadColumns+` FROM uploads ORDER BY uploaded_at DESC, name LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
}

// ListByDirectory returns the uploads into dir, newest first.
func (r *uploadRepository) ListByDirectory(ctx context.Context, dir string, page PaginationParams) ([]*Upload, error) {
	page.Validate()
	return r.scanUploads(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE directory = $1
		 ORDER BY uploaded_at DESC, name LIMIT $2 OFFSET $3`,
		strings.Trim(dir, "/"), page.Limit, page.Offset)
}

// ListBatch returns the uploads of one request in name order.
func (r *uploadRepository) ListBatch(ctx context.Context, batchID uuid.UUID) ([]*Upload, error) {
	return r.scanUploads(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE batch_id = $1 ORDER BY name`,
		batchID)
}

// Count returns the number of journal entries.
func (r *uploadRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return n, nil
}

// Health pings the database.
func (r *uploadRepository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (r *uploadRepository) scanUploads(ctx context.Context, query string, args ...interface{}) ([]*Upload, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	uploads := []*Upload{}
	for rows.Next() {
		u := &Upload{}
		if err := rows.Scan(
			&u.ID, &u.BatchID, &u.Name, &u.OriginalName, &u.Directory, &u.Path, &u.Size,
			&u.ContentType, &u.Mirrored, &u.RemoteAddr, &u.Fields, &u.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
