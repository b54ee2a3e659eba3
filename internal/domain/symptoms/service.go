package symptoms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/pkg/apperr"
)

// EventRecorder appends the symptom event after a check is committed.
type EventRecorder interface {
	Record(ctx context.Context, userID, recordID uuid.UUID, timestamp time.Time, payload twin.Payload) twin.WriteOutcome
}

// Analyzer is the language-model surface used for triage. Any failure
// means the fallback analysis is stored; the check itself always
// commits.
type Analyzer interface {
	Enabled() bool
	CompleteJSON(ctx context.Context, system, user string, out interface{}) error
}

type Service struct {
	checks Repository
	events EventRecorder
	ai     Analyzer
}

func NewService(checks Repository, events EventRecorder, ai Analyzer) *Service {
	return &Service{checks: checks, events: events, ai: ai}
}

type CreateInput struct {
	Symptoms []string `json:"symptoms"`
	Duration string   `json:"duration"`
	Severity string   `json:"severity"`
	Notes    string   `json:"notes"`
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*SymptomCheck, twin.WriteOutcome, error) {
	if userID == uuid.Nil {
		return nil, twin.WriteOutcome{}, apperr.Validation("user_id is required")
	}
	symptoms := make([]string, 0, len(in.Symptoms))
	for _, sym := range in.Symptoms {
		if sym = strings.TrimSpace(sym); sym != "" {
			symptoms = append(symptoms, sym)
		}
	}
	if len(symptoms) == 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("at least one symptom is required", "symptoms")
	}

	check := &SymptomCheck{
		UserID:   userID,
		Symptoms: symptoms,
		Duration: optional(in.Duration),
		Severity: optional(in.Severity),
		Notes:    optional(in.Notes),
	}

	now := time.Now().UTC()
	verdict, err := s.analyze(ctx, check)
	if err != nil {
		check.Analysis = FallbackAnalysis(now)
	} else {
		verdict.Urgency = NormalizeUrgency(verdict.Urgency)
		verdict.Status = StatusAnalyzed
		verdict.AnalyzedAt = now
		check.Analysis = *verdict
	}

	if err := s.checks.Create(ctx, check); err != nil {
		return nil, twin.WriteOutcome{}, err
	}

	outcome := s.events.Record(ctx, userID, check.ID, check.CreatedAt, twin.SymptomPayload{
		CheckID:  check.ID,
		Symptoms: check.Symptoms,
		Urgency:  check.Analysis.Urgency,
	})
	return check, outcome, nil
}

func (s *Service) analyze(ctx context.Context, check *SymptomCheck) (*Analysis, error) {
	if s.ai == nil || !s.ai.Enabled() {
		return nil, errors.New("triage is not configured")
	}

	system := `You are a medical triage assistant reviewing patient-reported symptoms. ` +
		`Always recommend professional consultation. Reply with JSON only: ` +
		`{"summary": "...", "urgency": "emergency|urgent|standard|routine", ` +
		`"possible_conditions": [{"name": "...", "probability": "high|medium|low", "description": "..."}], ` +
		`"recommendations": ["..."], "follow_up_questions": ["..."]}.`
	user := fmt.Sprintf("Assess these symptoms.\n\nSymptoms: %s\nDuration: %s\nSeverity: %s\nAdditional info: %s",
		strings.Join(check.Symptoms, ", "),
		orText(check.Duration, "not specified"),
		orText(check.Severity, "not specified"),
		orText(check.Notes, "none"))

	var verdict Analysis
	if err := s.ai.CompleteJSON(ctx, system, user, &verdict); err != nil {
		return nil, err
	}
	if verdict.Recommendations == nil {
		verdict.Recommendations = []string{}
	}
	return &verdict, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*SymptomCheck, error) {
	return s.checks.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*SymptomCheck, int, error) {
	return s.checks.List(ctx, userID, limit, offset)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orText(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
