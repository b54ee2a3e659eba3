package labs

import (
	"context"
	"errors"
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

type labRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &labRepoPG{pool: pool}
}

func (r *labRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const labCols = `id, user_id, test_name, value, unit, reference_range, status, test_date, notes, created_at`

func scanLab(row pgx.Row) (*LabResult, error) {
	var lab LabResult
	err := row.Scan(&lab.ID, &lab.UserID, &lab.TestName, &lab.Value, &lab.Unit,
		&lab.ReferenceRange, &lab.Status, &lab.TestDate, &lab.Notes, &lab.CreatedAt)
	return &lab, err
}

func (r *labRepoPG) Create(ctx context.Context, lab *LabResult) error {
	lab.ID = uuid.New()
	lab.CreatedAt = time.Now().UTC()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_results (id, user_id, test_name, value, unit, reference_range, status, test_date, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		lab.ID, lab.UserID, lab.TestName, lab.Value, lab.Unit,
		lab.ReferenceRange, lab.Status, lab.TestDate, lab.Notes, lab.CreatedAt)
	if err != nil {
		return apperr.Persistence("insert lab result", err)
	}
	return nil
}

func (r *labRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*LabResult, error) {
	lab, err := scanLab(r.conn(ctx).QueryRow(ctx,
		`SELECT `+labCols+` FROM lab_results WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("lab result")
	}
	if err != nil {
		return nil, apperr.Persistence("get lab result", err)
	}
	return lab, nil
}

func (r *labRepoPG) List(ctx context.Context, userID uuid.UUID, testName string, limit, offset int) ([]*LabResult, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if testName != "" {
		args = append(args, testName)
		where += fmt.Sprintf(` AND test_name = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_results `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count lab results", err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM lab_results %s ORDER BY test_date DESC LIMIT $%d OFFSET $%d`,
		labCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list lab results", err)
	}
	defer rows.Close()

	items := make([]*LabResult, 0)
	for rows.Next() {
		lab, err := scanLab(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan lab result", err)
		}
		items = append(items, lab)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Persistence("iterate lab results", err)
	}
	return items, total, nil
}

func (r *labRepoPG) ListByTest(ctx context.Context, userID uuid.UUID, testName string) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+labCols+` FROM lab_results WHERE user_id = $1 AND test_name = $2 ORDER BY test_date ASC`,
		userID, testName)
	if err != nil {
		return nil, apperr.Persistence("list lab history", err)
	}
	defer rows.Close()

	items := make([]*LabResult, 0)
	for rows.Next() {
		lab, err := scanLab(rows)
		if err != nil {
			return nil, apperr.Persistence("scan lab result", err)
		}
		items = append(items, lab)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate lab history", err)
	}
	return items, nil
}

func (r *labRepoPG) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_results WHERE user_id = $1 AND test_date >= $2`,
		userID, since).Scan(&total)
	if err != nil {
		return 0, apperr.Persistence("count recent lab results", err)
	}
	return total, nil
}
