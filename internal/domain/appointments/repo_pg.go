package appointments

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

type apptRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &apptRepoPG{pool: pool} }

func (r *apptRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, user_id, doctor_name, specialty, appointment_type, appointment_date,
	duration_minutes, reason, status, meeting_link, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.DoctorName, &a.Specialty, &a.AppointmentType,
		&a.AppointmentDate, &a.DurationMinutes, &a.Reason, &a.Status, &a.MeetingLink,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *apptRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, user_id, doctor_name, specialty, appointment_type,
			appointment_date, duration_minutes, reason, status, meeting_link, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.UserID, a.DoctorName, a.Specialty, a.AppointmentType,
		a.AppointmentDate, a.DurationMinutes, a.Reason, a.Status, a.MeetingLink,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return apperr.Persistence("create appointment", err)
	}
	return nil
}

func (r *apptRepoPG) GetByID(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1 AND user_id = $2`, id, userID))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("appointment")
	}
	if err != nil {
		return nil, apperr.Persistence("get appointment", err)
	}
	return a, nil
}

func (r *apptRepoPG) List(ctx context.Context, userID uuid.UUID, f Filter) ([]*Appointment, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.UpcomingAfter != nil {
		args = append(args, *f.UpcomingAfter, StatusScheduled, StatusConfirmed)
		where += fmt.Sprintf(" AND appointment_date > $%d AND status IN ($%d, $%d)",
			len(args)-2, len(args)-1, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count appointments", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM appointments %s ORDER BY appointment_date DESC LIMIT $%d OFFSET $%d`,
		apptCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list appointments", err)
	}
	defer rows.Close()

	appts := make([]*Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("list appointments", err)
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

func (r *apptRepoPG) UpdateStatus(ctx context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()

	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status=$3, updated_at=$4
		WHERE id = $1 AND user_id = $2`,
		a.ID, a.UserID, a.Status, a.UpdatedAt)
	if err != nil {
		return apperr.Persistence("update appointment status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *apptRepoPG) CountUpcoming(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE user_id = $1 AND appointment_date > $2 AND status IN ($3, $4)`,
		userID, now, StatusScheduled, StatusConfirmed).Scan(&total)
	if err != nil {
		return 0, apperr.Persistence("count upcoming appointments", err)
	}
	return total, nil
}
