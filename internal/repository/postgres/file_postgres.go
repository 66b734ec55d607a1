package postgres

import (
	"context"
	"database/sql"
	"errors"

	"filevault/internal/model"
	"filevault/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

const fileColumns = `owner_id, file_id, original_name, mime_type, size_bytes, blob_key, blob_url,
		uploaded_at, is_public, owner_email, last_modified`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(s rowScanner) (model.FileRecord, error) {
	var f model.FileRecord
	err := s.Scan(
		&f.OwnerID,
		&f.FileID,
		&f.OriginalName,
		&f.MimeType,
		&f.SizeBytes,
		&f.BlobKey,
		&f.BlobURL,
		&f.UploadedAt,
		&f.IsPublic,
		&f.OwnerEmail,
		&f.LastModified,
	)
	return f, err
}

// Put inserts the record or replaces the existing row with the same (owner_id, file_id).
func (r *FilePostgres) Put(ctx context.Context, rec *model.FileRecord) error {
	const q = `
		INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (owner_id, file_id) DO UPDATE SET
			original_name = EXCLUDED.original_name,
			mime_type     = EXCLUDED.mime_type,
			size_bytes    = EXCLUDED.size_bytes,
			blob_key      = EXCLUDED.blob_key,
			blob_url      = EXCLUDED.blob_url,
			uploaded_at   = EXCLUDED.uploaded_at,
			is_public     = EXCLUDED.is_public,
			owner_email   = EXCLUDED.owner_email,
			last_modified = EXCLUDED.last_modified
	`
	_, err := r.db.ExecContext(ctx, q,
		rec.OwnerID,
		rec.FileID,
		rec.OriginalName,
		rec.MimeType,
		rec.SizeBytes,
		rec.BlobKey,
		rec.BlobURL,
		rec.UploadedAt,
		rec.IsPublic,
		rec.OwnerEmail,
		rec.LastModified,
	)
	return err
}

// Get fetches a single record. sql.ErrNoRows is translated to repository.ErrNotFound.
func (r *FilePostgres) Get(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 AND file_id = $2`
	f, err := scanFile(r.db.QueryRowContext(ctx, q, ownerID, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListByOwner returns all rows of one owner, newest first.
func (r *FilePostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.FileRecord, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY uploaded_at DESC, file_id DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a row. It does not return an error if the row does not exist.
func (r *FilePostgres) Delete(ctx context.Context, ownerID, fileID string) error {
	const q = `DELETE FROM files WHERE owner_id = $1 AND file_id = $2`
	_, err := r.db.ExecContext(ctx, q, ownerID, fileID)
	return err
}

func (r *FilePostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
