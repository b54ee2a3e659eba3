package careplan

import (
	"context"
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

type planRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &planRepoPG{pool: pool} }

func (r *planRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const planCols = `id, user_id, title, description, goals, duration_weeks, status,
	started_at, ended_at, created_at, updated_at`

func scanPlan(row pgx.Row) (*CarePlan, error) {
	var p CarePlan
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Goals, &p.DurationWeeks,
		&p.Status, &p.StartedAt, &p.EndedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Goals == nil {
		p.Goals = []string{}
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *CarePlan) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_plans (id, user_id, title, description, goals, duration_weeks,
			status, started_at, ended_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.UserID, p.Title, p.Description, p.Goals, p.DurationWeeks,
		p.Status, p.StartedAt, p.EndedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return apperr.Persistence("create care plan", err)
	}
	return nil
}

func (r *planRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*CarePlan, error) {
	p, err := scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM care_plans WHERE id = $1 AND user_id = $2`, id, userID))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("care plan")
	}
	if err != nil {
		return nil, apperr.Persistence("get care plan", err)
	}
	return p, nil
}

func (r *planRepoPG) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*CarePlan, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM care_plans `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count care plans", err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM care_plans %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		planCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list care plans", err)
	}
	defer rows.Close()

	plans := make([]*CarePlan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("list care plans", err)
		}
		plans = append(plans, p)
	}
	return plans, total, rows.Err()
}

func (r *planRepoPG) UpdateStatus(ctx context.Context, p *CarePlan) error {
	p.UpdatedAt = time.Now().UTC()

	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_plans SET status=$3, ended_at=$4, updated_at=$5
		WHERE id = $1 AND user_id = $2`,
		p.ID, p.UserID, p.Status, p.EndedAt, p.UpdatedAt)
	if err != nil {
		return apperr.Persistence("update care plan status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("care plan")
	}
	return nil
}

func (r *planRepoPG) CountActive(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM care_plans WHERE user_id = $1 AND status = $2`,
		userID, StatusActive).Scan(&total)
	if err != nil {
		return 0, apperr.Persistence("count active care plans", err)
	}
	return total, nil
}
