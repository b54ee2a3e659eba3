package vitals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/internal/platform/db"
	"github.com/medinexus/twin/pkg/apperr"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

type vitalRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &vitalRepoPG{pool: pool} }

const vitalCols = `id, user_id, vital_type, value, unit, recorded_at, device_id, created_at`

func scanVital(row pgx.Row) (*Vital, error) {
	var v Vital
	err := row.Scan(&v.ID, &v.UserID, &v.VitalType, &v.Value, &v.Unit,
		&v.RecordedAt, &v.DeviceID, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vitalRepoPG) Create(ctx context.Context, v *Vital) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()

	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO vitals (id, user_id, vital_type, value, unit, recorded_at, device_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.UserID, v.VitalType, v.Value, v.Unit, v.RecordedAt, v.DeviceID, v.CreatedAt)
	if err != nil {
		return apperr.Persistence("create vital", err)
	}
	return nil
}

func (r *vitalRepoPG) List(ctx context.Context, userID uuid.UUID, vitalType string, limit, offset int) ([]*Vital, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if vitalType != "" {
		args = append(args, vitalType)
		where += fmt.Sprintf(" AND vital_type = $%d", len(args))
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM vitals `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count vitals", err)
	}

	args = append(args, limit, offset)
	rows, err := conn(ctx, r.pool).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM vitals %s ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d`,
		vitalCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list vitals", err)
	}
	defer rows.Close()

	vitals := make([]*Vital, 0)
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("list vitals", err)
		}
		vitals = append(vitals, v)
	}
	return vitals, total, rows.Err()
}

func (r *vitalRepoPG) LatestByType(ctx context.Context, userID uuid.UUID) (map[string]twin.VitalSnapshot, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT DISTINCT ON (vital_type) vital_type, value, unit, recorded_at
		FROM vitals WHERE user_id = $1
		ORDER BY vital_type, recorded_at DESC`, userID)
	if err != nil {
		return nil, apperr.Persistence("latest vitals", err)
	}
	defer rows.Close()

	latest := make(map[string]twin.VitalSnapshot)
	for rows.Next() {
		var vitalType string
		var snap twin.VitalSnapshot
		if err := rows.Scan(&vitalType, &snap.Value, &snap.Unit, &snap.RecordedAt); err != nil {
			return nil, apperr.Persistence("latest vitals", err)
		}
		latest[vitalType] = snap
	}
	return latest, rows.Err()
}

func (r *vitalRepoPG) Summarize(ctx context.Context, userID uuid.UUID, since time.Time) (map[string]TypeSummary, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT vital_type, AVG(value), MIN(value), MAX(value), COUNT(*), MIN(unit)
		FROM vitals WHERE user_id = $1 AND recorded_at >= $2
		GROUP BY vital_type`, userID, since)
	if err != nil {
		return nil, apperr.Persistence("summarize vitals", err)
	}
	defer rows.Close()

	summary := make(map[string]TypeSummary)
	for rows.Next() {
		var vitalType string
		var s TypeSummary
		if err := rows.Scan(&vitalType, &s.Avg, &s.Min, &s.Max, &s.Count, &s.Unit); err != nil {
			return nil, apperr.Persistence("summarize vitals", err)
		}
		summary[vitalType] = s
	}
	return summary, rows.Err()
}

type deviceRepoPG struct{ pool *pgxpool.Pool }

func NewDeviceRepoPG(pool *pgxpool.Pool) DeviceRepository { return &deviceRepoPG{pool: pool} }

const deviceCols = `id, user_id, device_name, device_type, registered_at, last_sync_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.UserID, &d.DeviceName, &d.DeviceType, &d.RegisteredAt, &d.LastSyncAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deviceRepoPG) Create(ctx context.Context, d *Device) error {
	d.ID = uuid.New()
	d.RegisteredAt = time.Now().UTC()

	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO devices (id, user_id, device_name, device_type, registered_at)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.UserID, d.DeviceName, d.DeviceType, d.RegisteredAt)
	if err != nil {
		return apperr.Persistence("register device", err)
	}
	return nil
}

func (r *deviceRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*Device, error) {
	d, err := scanDevice(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE id = $1 AND user_id = $2`, id, userID))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("device")
	}
	if err != nil {
		return nil, apperr.Persistence("get device", err)
	}
	return d, nil
}

func (r *deviceRepoPG) List(ctx context.Context, userID uuid.UUID) ([]*Device, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE user_id = $1 ORDER BY registered_at DESC`, userID)
	if err != nil {
		return nil, apperr.Persistence("list devices", err)
	}
	defer rows.Close()

	devices := make([]*Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, apperr.Persistence("list devices", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *deviceRepoPG) TouchSync(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE devices SET last_sync_at = $3 WHERE id = $1 AND user_id = $2`, id, userID, at)
	if err != nil {
		return apperr.Persistence("touch device sync", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("device")
	}
	return nil
}
