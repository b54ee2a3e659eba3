package labs

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/pkg/apperr"
)

// EventRecorder appends the timeline event for an already-committed record.
type EventRecorder interface {
	Record(ctx context.Context, userID, recordID uuid.UUID, timestamp time.Time, payload twin.Payload) twin.WriteOutcome
}

// Notifier raises a user notification for a critical result. Implementations
// must not fail the lab write; delivery problems are theirs to log.
type Notifier interface {
	LabCritical(ctx context.Context, userID uuid.UUID, lab *LabResult)
}

type Service struct {
	labs     Repository
	events   EventRecorder
	notifier Notifier
	policy   StatusPolicy
}

func NewService(labs Repository, events EventRecorder, notifier Notifier, policy StatusPolicy) *Service {
	return &Service{labs: labs, events: events, notifier: notifier, policy: policy}
}

type CreateInput struct {
	TestName       string    `json:"test_name"`
	Value          *float64  `json:"value"`
	Unit           string    `json:"unit"`
	ReferenceRange string    `json:"reference_range"`
	TestDate       time.Time `json:"test_date"`
	Notes          string    `json:"notes"`
}

// Create persists one lab result with its derived status, then appends the
// matching timeline event. The event half may fail independently; the
// returned outcome says whether it exists.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*LabResult, twin.WriteOutcome, error) {
	if userID == uuid.Nil {
		return nil, twin.WriteOutcome{}, apperr.Validation("user_id is required", "user_id")
	}
	var missing []string
	if strings.TrimSpace(in.TestName) == "" {
		missing = append(missing, "test_name")
	}
	if in.Value == nil {
		missing = append(missing, "value")
	}
	if strings.TrimSpace(in.Unit) == "" {
		missing = append(missing, "unit")
	}
	if len(missing) > 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("missing required fields", missing...)
	}

	testDate := in.TestDate
	if testDate.IsZero() {
		testDate = time.Now().UTC()
	}

	lab := &LabResult{
		UserID:   userID,
		TestName: strings.TrimSpace(in.TestName),
		Value:    *in.Value,
		Unit:     strings.TrimSpace(in.Unit),
		Status:   s.policy.Classify(*in.Value, in.ReferenceRange),
		TestDate: testDate,
	}
	if in.ReferenceRange != "" {
		lab.ReferenceRange = &in.ReferenceRange
	}
	if in.Notes != "" {
		lab.Notes = &in.Notes
	}

	if err := s.labs.Create(ctx, lab); err != nil {
		return nil, twin.WriteOutcome{}, err
	}

	outcome := s.events.Record(ctx, userID, lab.ID, lab.TestDate, twin.LabResultPayload{
		LabID:          lab.ID,
		TestName:       lab.TestName,
		Value:          lab.Value,
		Unit:           lab.Unit,
		Status:         lab.Status,
		ReferenceRange: in.ReferenceRange,
	})

	if lab.Status == StatusCritical && s.notifier != nil {
		s.notifier.LabCritical(ctx, userID, lab)
	}
	return lab, outcome, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*LabResult, error) {
	return s.labs.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, testName string, limit, offset int) ([]*LabResult, int, error) {
	return s.labs.List(ctx, userID, testName, limit, offset)
}

// Trends returns the ordered per-test history used to render directionality.
func (s *Service) Trends(ctx context.Context, userID uuid.UUID, testName string) (*Trend, error) {
	if strings.TrimSpace(testName) == "" {
		return nil, apperr.Validation("test_name is required", "test_name")
	}
	history, err := s.labs.ListByTest(ctx, userID, testName)
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, 0, len(history))
	for _, lab := range history {
		points = append(points, TrendPoint{
			Value:  lab.Value,
			Unit:   lab.Unit,
			Status: lab.Status,
			Date:   lab.TestDate,
		})
	}
	return &Trend{TestName: testName, Points: points}, nil
}
