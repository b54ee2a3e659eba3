package twin

import (
	"context"
	"encoding/json"
	"fmt"

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

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository {
	return &eventRepoPG{pool: pool}
}

func (r *eventRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const eventCols = `id, user_id, event_type, timestamp, data_payload`

func scanEvent(row pgx.Row) (*TwinEvent, error) {
	var (
		e       TwinEvent
		evType  string
		payload []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &evType, &e.Timestamp, &payload); err != nil {
		return nil, err
	}
	e.EventType = EventType(evType)
	p, err := DecodePayload(e.EventType, payload)
	if err != nil {
		return nil, err
	}
	e.Payload = p
	return &e, nil
}

func (r *eventRepoPG) Append(ctx context.Context, e *TwinEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return apperr.Persistence("encode event payload", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO twin_events (id, user_id, event_type, timestamp, data_payload)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, string(e.EventType), e.Timestamp, payload)
	if err != nil {
		return apperr.Persistence("insert event", err)
	}
	return nil
}

func (r *eventRepoPG) Query(ctx context.Context, userID uuid.UUID, f QueryFilter) ([]*TwinEvent, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if f.EventType != "" {
		args = append(args, string(f.EventType))
		where += fmt.Sprintf(` AND event_type = $%d`, len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		where += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		where += fmt.Sprintf(` AND timestamp <= $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM twin_events `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count events", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM twin_events %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		eventCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Persistence("query events", err)
	}
	defer rows.Close()

	events := make([]*TwinEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Persistence("iterate events", err)
	}
	return events, total, nil
}
