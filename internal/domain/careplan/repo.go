package careplan

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *CarePlan) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*CarePlan, error)
	List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*CarePlan, int, error)
	UpdateStatus(ctx context.Context, p *CarePlan) error
	CountActive(ctx context.Context, userID uuid.UUID) (int, error)
}
