package billing

import (
	"context"
	"errors"
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

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const subCols = `id, user_id, plan_id, plan_name, amount_cents, currency, session_id, status, activated_at, created_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.AmountCents, &s.Currency,
		&s.SessionID, &s.Status, &s.ActivatedAt, &s.CreatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, sub *Subscription) error {
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, plan_name, amount_cents, currency, session_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.UserID, sub.PlanID, sub.PlanName, sub.AmountCents, sub.Currency,
		sub.SessionID, sub.Status, sub.CreatedAt)
	if err != nil {
		return apperr.Persistence("create subscription", err)
	}
	return nil
}

func (r *repoPG) LatestByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+subCols+` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("subscription")
	}
	if err != nil {
		return nil, apperr.Persistence("get latest subscription", err)
	}
	return sub, nil
}

func (r *repoPG) GetBySessionID(ctx context.Context, sessionID string) (*Subscription, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+subCols+` FROM subscriptions WHERE session_id = $1`,
		sessionID)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("subscription")
	}
	if err != nil {
		return nil, apperr.Persistence("get subscription by session", err)
	}
	return sub, nil
}

func (r *repoPG) Activate(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, activated_at = COALESCE(activated_at, $3)
		WHERE id = $1`,
		id, StatusActive, at.UTC())
	if err != nil {
		return apperr.Persistence("activate subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("subscription")
	}
	return nil
}
