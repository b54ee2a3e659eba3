package symptoms

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

type checkRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &checkRepoPG{pool: pool} }

func (r *checkRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const checkCols = `id, user_id, symptoms, duration, severity, notes, analysis, created_at`

func scanCheck(row pgx.Row) (*SymptomCheck, error) {
	var c SymptomCheck
	var analysis []byte
	err := row.Scan(&c.ID, &c.UserID, &c.Symptoms, &c.Duration, &c.Severity, &c.Notes,
		&analysis, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if c.Symptoms == nil {
		c.Symptoms = []string{}
	}
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &c.Analysis); err != nil {
			return nil, fmt.Errorf("decoding analysis: %w", err)
		}
	}
	return &c, nil
}

func (r *checkRepoPG) Create(ctx context.Context, c *SymptomCheck) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()

	analysis, err := json.Marshal(c.Analysis)
	if err != nil {
		return apperr.Persistence("create symptom check", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO symptom_checks (id, user_id, symptoms, duration, severity, notes, analysis, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.UserID, c.Symptoms, c.Duration, c.Severity, c.Notes, analysis, c.CreatedAt)
	if err != nil {
		return apperr.Persistence("create symptom check", err)
	}
	return nil
}

func (r *checkRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*SymptomCheck, error) {
	c, err := scanCheck(r.conn(ctx).QueryRow(ctx,
		`SELECT `+checkCols+` FROM symptom_checks WHERE id = $1 AND user_id = $2`, id, userID))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("symptom check")
	}
	if err != nil {
		return nil, apperr.Persistence("get symptom check", err)
	}
	return c, nil
}

func (r *checkRepoPG) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*SymptomCheck, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM symptom_checks WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count symptom checks", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+checkCols+` FROM symptom_checks WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list symptom checks", err)
	}
	defer rows.Close()

	checks := make([]*SymptomCheck, 0)
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("list symptom checks", err)
		}
		checks = append(checks, c)
	}
	return checks, total, rows.Err()
}
