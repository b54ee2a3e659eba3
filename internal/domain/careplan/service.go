package careplan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/pkg/apperr"
)

// EventRecorder appends the treatment event after a plan is committed.
type EventRecorder interface {
	Record(ctx context.Context, userID, recordID uuid.UUID, timestamp time.Time, payload twin.Payload) twin.WriteOutcome
}

type Service struct {
	plans  Repository
	events EventRecorder
}

func NewService(plans Repository, events EventRecorder) *Service {
	return &Service{plans: plans, events: events}
}

type CreateInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Goals         []string `json:"goals"`
	DurationWeeks *int     `json:"duration_weeks"`
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*CarePlan, twin.WriteOutcome, error) {
	if userID == uuid.Nil {
		return nil, twin.WriteOutcome{}, apperr.Validation("user_id is required")
	}
	if in.Title == "" {
		return nil, twin.WriteOutcome{}, apperr.Validation("missing required fields", "title")
	}
	if in.DurationWeeks != nil && *in.DurationWeeks <= 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("duration_weeks must be positive", "duration_weeks")
	}

	plan := &CarePlan{
		UserID:        userID,
		Title:         in.Title,
		Goals:         in.Goals,
		DurationWeeks: in.DurationWeeks,
		Status:        StatusActive,
		StartedAt:     time.Now().UTC(),
	}
	if plan.Goals == nil {
		plan.Goals = []string{}
	}
	if in.Description != "" {
		plan.Description = &in.Description
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, twin.WriteOutcome{}, err
	}

	outcome := s.events.Record(ctx, userID, plan.ID, plan.CreatedAt, twin.TreatmentPayload{
		PlanID: plan.ID,
		Title:  plan.Title,
	})
	return plan, outcome, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*CarePlan, error) {
	return s.plans.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*CarePlan, int, error) {
	if status != "" && !ValidStatus(status) {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown status %q", status), "status")
	}
	return s.plans.List(ctx, userID, status, limit, offset)
}

// UpdateStatus moves the plan through its lifecycle. Terminal statuses
// stamp EndedAt; a completed or cancelled plan cannot change again.
func (s *Service) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (*CarePlan, error) {
	if !ValidStatus(status) {
		return nil, apperr.Validation(fmt.Sprintf("unknown status %q", status), "status")
	}

	plan, err := s.plans.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(plan.Status, status) {
		return nil, apperr.Validation(
			fmt.Sprintf("cannot change status from %q to %q", plan.Status, status), "status")
	}

	plan.Status = status
	if Terminal(status) {
		now := time.Now().UTC()
		plan.EndedAt = &now
	}
	if err := s.plans.UpdateStatus(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}
