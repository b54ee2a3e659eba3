package vitals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/twin"
)

type Repository interface {
	Create(ctx context.Context, v *Vital) error
	List(ctx context.Context, userID uuid.UUID, vitalType string, limit, offset int) ([]*Vital, int, error)
	LatestByType(ctx context.Context, userID uuid.UUID) (map[string]twin.VitalSnapshot, error)
	Summarize(ctx context.Context, userID uuid.UUID, since time.Time) (map[string]TypeSummary, error)
}

type DeviceRepository interface {
	Create(ctx context.Context, d *Device) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Device, error)
	List(ctx context.Context, userID uuid.UUID) ([]*Device, error)
	TouchSync(ctx context.Context, userID, id uuid.UUID, at time.Time) error
}
