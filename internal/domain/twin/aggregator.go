package twin

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// recentLabWindow is the trailing window in which a lab result counts as
// recent on the dashboard.
const recentLabWindow = 30 * 24 * time.Hour

// CarePlanCounter counts a user's care plans with status active.
type CarePlanCounter interface {
	CountActive(ctx context.Context, userID uuid.UUID) (int, error)
}

// AppointmentCounter counts a user's future appointments still on the
// calendar (status scheduled or confirmed).
type AppointmentCounter interface {
	CountUpcoming(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
}

// LabCounter counts a user's lab results tested on or after since.
type LabCounter interface {
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// DocumentCounter counts all of a user's documents.
type DocumentCounter interface {
	CountAll(ctx context.Context, userID uuid.UUID) (int, error)
}

// VitalReader reports a user's most recent reading per vital type.
type VitalReader interface {
	LatestByType(ctx context.Context, userID uuid.UUID) (map[string]VitalSnapshot, error)
}

// VitalSnapshot is one entry of the aggregate's latest_vitals map.
type VitalSnapshot struct {
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Aggregate is the dashboard snapshot: per-collection filtered counts plus
// the latest reading per vital type. It is recomputed on every request and
// never cached.
type Aggregate struct {
	UserID               uuid.UUID                `json:"user_id"`
	ActiveCarePlans      int                      `json:"active_care_plans"`
	UpcomingAppointments int                      `json:"upcoming_appointments"`
	RecentLabResults     int                      `json:"recent_lab_results"`
	TotalDocuments       int                      `json:"total_documents"`
	LatestVitals         map[string]VitalSnapshot `json:"latest_vitals"`
	LastUpdated          time.Time                `json:"last_updated"`
}

type Aggregator struct {
	carePlans    CarePlanCounter
	appointments AppointmentCounter
	labs         LabCounter
	documents    DocumentCounter
	vitals       VitalReader
}

func NewAggregator(carePlans CarePlanCounter, appointments AppointmentCounter, labs LabCounter, documents DocumentCounter, vitals VitalReader) *Aggregator {
	return &Aggregator{
		carePlans:    carePlans,
		appointments: appointments,
		labs:         labs,
		documents:    documents,
		vitals:       vitals,
	}
}

// Snapshot computes the aggregate for userID. Each counter is an independent
// filtered read; consistency under concurrent writes is whatever the store
// provides, with no extra locking.
func (a *Aggregator) Snapshot(ctx context.Context, userID uuid.UUID) (*Aggregate, error) {
	now := time.Now().UTC()

	plans, err := a.carePlans.CountActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	appts, err := a.appointments.CountUpcoming(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	labs, err := a.labs.CountSince(ctx, userID, now.Add(-recentLabWindow))
	if err != nil {
		return nil, err
	}
	docs, err := a.documents.CountAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	vitals, err := a.vitals.LatestByType(ctx, userID)
	if err != nil {
		return nil, err
	}
	if vitals == nil {
		vitals = map[string]VitalSnapshot{}
	}

	return &Aggregate{
		UserID:               userID,
		ActiveCarePlans:      plans,
		UpcomingAppointments: appts,
		RecentLabResults:     labs,
		TotalDocuments:       docs,
		LatestVitals:         vitals,
		LastUpdated:          now,
	}, nil
}
