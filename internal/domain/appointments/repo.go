package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows an appointment listing. UpcomingAfter keeps only
// appointments after that instant that are still scheduled or
// confirmed.
type Filter struct {
	Status        string
	UpcomingAfter *time.Time
	Limit, Offset int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, userID uuid.UUID, f Filter) ([]*Appointment, int, error)
	UpdateStatus(ctx context.Context, a *Appointment) error
	CountUpcoming(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
}
