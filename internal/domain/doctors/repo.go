package doctors

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// List filters by specialty substring, case-insensitively, when
	// specialty is non-empty.
	List(ctx context.Context, specialty string, limit, offset int) ([]*Doctor, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
}
