package documents

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Document, error)
	List(ctx context.Context, userID uuid.UUID, docType string, limit, offset int) ([]*Document, int, error)
	Update(ctx context.Context, d *Document) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	CountAll(ctx context.Context, userID uuid.UUID) (int, error)
}
