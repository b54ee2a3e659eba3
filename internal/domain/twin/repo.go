package twin

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QueryFilter narrows a timeline query. Zero values mean no constraint.
type QueryFilter struct {
	EventType EventType
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// EventRepository is the append-only event store. No update or delete:
// the timeline is a permanent history.
type EventRepository interface {
	Append(ctx context.Context, e *TwinEvent) error
	Query(ctx context.Context, userID uuid.UUID, f QueryFilter) ([]*TwinEvent, int, error)
}
