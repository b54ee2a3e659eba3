package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medinexus/twin/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PGStore keeps attachments in a Postgres bytea column. Attachment
// sizes are bounded by MaxFileSize, which keeps row sizes reasonable
// without a separate object store.
type PGStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *PGStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	data, err := readAndValidate(&meta, content)
	if err != nil {
		return nil, err
	}

	_, err = s.conn(ctx).Exec(ctx, `
		INSERT INTO document_files (id, owner_id, file_name, content_type, size, hash, content, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		meta.ID, meta.OwnerID, meta.FileName, meta.ContentType, meta.Size, meta.Hash, data, meta.CreatedAt)
	if err != nil {
		return nil, err
	}

	out := meta
	return &out, nil
}

func (s *PGStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	var meta BlobMetadata
	var data []byte
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, owner_id, file_name, content_type, size, hash, content, created_at
		FROM document_files WHERE id = $1`, id).
		Scan(&meta.ID, &meta.OwnerID, &meta.FileName, &meta.ContentType, &meta.Size, &meta.Hash, &data, &meta.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), &meta, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM document_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlobNotFound
	}
	return nil
}
