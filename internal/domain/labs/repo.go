package labs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists lab results. Every read is scoped to the owning user;
// CountSince doubles as the aggregator's recent-labs counter.
type Repository interface {
	Create(ctx context.Context, lab *LabResult) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*LabResult, error)
	List(ctx context.Context, userID uuid.UUID, testName string, limit, offset int) ([]*LabResult, int, error)
	ListByTest(ctx context.Context, userID uuid.UUID, testName string) ([]*LabResult, error)
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}
