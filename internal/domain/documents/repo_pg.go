package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medinexus/twin/internal/platform/db"
	"github.com/medinexus/twin/pkg/apperr"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type docRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &docRepoPG{pool: pool} }

func (r *docRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const docCols = `id, user_id, title, doc_type, content, summary, summary_status,
	file_id, file_name, image_analysis, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var analysis []byte
	err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.DocType, &d.Content, &d.Summary, &d.SummaryStatus,
		&d.FileID, &d.FileName, &analysis, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &d.Analysis); err != nil {
			return nil, fmt.Errorf("decoding image analysis: %w", err)
		}
	}
	return &d, nil
}

func marshalAnalysis(a *ImageAnalysis) (interface{}, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (r *docRepoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt

	analysis, err := marshalAnalysis(d.Analysis)
	if err != nil {
		return apperr.Persistence("create document", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO documents (id, user_id, title, doc_type, content, summary, summary_status,
			file_id, file_name, image_analysis, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, d.UserID, d.Title, d.DocType, d.Content, d.Summary, d.SummaryStatus,
		d.FileID, d.FileName, analysis, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return apperr.Persistence("create document", err)
	}
	return nil
}

func (r *docRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+docCols+` FROM documents WHERE id = $1 AND user_id = $2`, id, userID))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("document")
	}
	if err != nil {
		return nil, apperr.Persistence("get document", err)
	}
	return d, nil
}

func (r *docRepoPG) List(ctx context.Context, userID uuid.UUID, docType string, limit, offset int) ([]*Document, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if docType != "" {
		args = append(args, docType)
		where += fmt.Sprintf(" AND doc_type = $%d", len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count documents", err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM documents %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		docCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list documents", err)
	}
	defer rows.Close()

	docs := make([]*Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("list documents", err)
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

func (r *docRepoPG) Update(ctx context.Context, d *Document) error {
	d.UpdatedAt = time.Now().UTC()

	analysis, err := marshalAnalysis(d.Analysis)
	if err != nil {
		return apperr.Persistence("update document", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE documents SET title=$3, doc_type=$4, content=$5, summary=$6, summary_status=$7,
			file_id=$8, file_name=$9, image_analysis=$10, updated_at=$11
		WHERE id = $1 AND user_id = $2`,
		d.ID, d.UserID, d.Title, d.DocType, d.Content, d.Summary, d.SummaryStatus,
		d.FileID, d.FileName, analysis, d.UpdatedAt)
	if err != nil {
		return apperr.Persistence("update document", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("document")
	}
	return nil
}

func (r *docRepoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Persistence("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("document")
	}
	return nil
}

func (r *docRepoPG) CountAll(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return 0, apperr.Persistence("count documents", err)
	}
	return total, nil
}
