package symptoms

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, check *SymptomCheck) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*SymptomCheck, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*SymptomCheck, int, error)
}
