package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	LatestByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Subscription, error)
	// Activate marks a pending subscription active. Activating an
	// already-active subscription is a no-op.
	Activate(ctx context.Context, id uuid.UUID, at time.Time) error
}
