package insights

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/labs"
	"github.com/medinexus/twin/internal/domain/symptoms"
	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/pkg/apperr"
)

const windowDays = 7

// Penalty weights per finding class. Each class is capped so a burst of
// one signal cannot zero the score on its own.
const (
	criticalLabPenalty = 15
	criticalLabCap     = 45

	abnormalVitalPenalty = 5
	abnormalVitalCap     = 25

	urgentSymptomPenalty    = 10
	emergencySymptomPenalty = 20
	symptomCap              = 40
)

// fetchBatch bounds one timeline page; fetchMax bounds the whole scan.
const (
	fetchBatch = 500
	fetchMax   = 10000
)

// vitalRanges bounds the values considered normal per vital type. Types
// absent from the table are never judged abnormal.
var vitalRanges = map[string]struct{ Min, Max float64 }{
	"heart_rate":        {60, 100},
	"blood_pressure":    {90, 140},
	"temperature":       {36.1, 37.2},
	"oxygen_saturation": {95, 100},
	"blood_glucose":     {70, 140},
}

var orderedEventTypes = []twin.EventType{
	twin.EventSymptom,
	twin.EventLabResult,
	twin.EventDocument,
	twin.EventVital,
	twin.EventConsultation,
	twin.EventTreatment,
}

// EventSource reads a user's timeline, newest first. Satisfied by the
// event store repository.
type EventSource interface {
	Query(ctx context.Context, userID uuid.UUID, f twin.QueryFilter) ([]*twin.TwinEvent, int, error)
}

type Service struct {
	events EventSource
}

func NewService(events EventSource) *Service {
	return &Service{events: events}
}

// eventsSince pages through the full window so heavy sync users are not
// truncated at one page.
func (s *Service) eventsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*twin.TwinEvent, error) {
	var all []*twin.TwinEvent
	for offset := 0; offset < fetchMax; offset += fetchBatch {
		page, total, err := s.events.Query(ctx, userID, twin.QueryFilter{
			Since:  &since,
			Limit:  fetchBatch,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			break
		}
	}
	return all, nil
}

type windowFindings struct {
	criticalLabs   []string
	abnormalVitals []string
	urgentSymptoms []string
	urgentCount    int
	emergencyCount int
	vitalReadings  int
}

func classify(events []*twin.TwinEvent) windowFindings {
	var f windowFindings
	for _, e := range events {
		switch p := e.Payload.(type) {
		case twin.LabResultPayload:
			if p.Status == labs.StatusCritical {
				f.criticalLabs = append(f.criticalLabs, p.TestName)
			}
		case twin.VitalPayload:
			f.vitalReadings++
			if r, ok := vitalRanges[p.VitalType]; ok && (p.Value < r.Min || p.Value > r.Max) {
				f.abnormalVitals = append(f.abnormalVitals, formatReading(p))
			}
		case twin.SymptomPayload:
			switch p.Urgency {
			case symptoms.UrgencyEmergency:
				f.emergencyCount++
				f.urgentSymptoms = append(f.urgentSymptoms, p.Symptoms...)
			case symptoms.UrgencyUrgent:
				f.urgentCount++
				f.urgentSymptoms = append(f.urgentSymptoms, p.Symptoms...)
			}
		}
	}
	return f
}

func formatReading(p twin.VitalPayload) string {
	v := strconv.FormatFloat(p.Value, 'f', -1, 64)
	if p.Unit == "" {
		return fmt.Sprintf("%s %s", p.VitalType, v)
	}
	return fmt.Sprintf("%s %s %s", p.VitalType, v, p.Unit)
}

// Daily computes the caller's health score for the trailing window. The
// score starts at 100 and loses capped, weighted points per finding
// class; it is recomputed on every request.
func (s *Service) Daily(ctx context.Context, userID uuid.UUID) (*DailyInsights, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("user id is required", "user_id")
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -windowDays)
	events, err := s.eventsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	f := classify(events)

	score := 100
	deductions := []Deduction{}
	if n := len(f.criticalLabs); n > 0 {
		points := min(n*criticalLabPenalty, criticalLabCap)
		score -= points
		deductions = append(deductions, Deduction{Reason: "critical lab results", Count: n, Points: points})
	}
	if n := len(f.abnormalVitals); n > 0 {
		points := min(n*abnormalVitalPenalty, abnormalVitalCap)
		score -= points
		deductions = append(deductions, Deduction{Reason: "vitals outside normal range", Count: n, Points: points})
	}
	if n := f.urgentCount + f.emergencyCount; n > 0 {
		points := min(f.urgentCount*urgentSymptomPenalty+f.emergencyCount*emergencySymptomPenalty, symptomCap)
		score -= points
		deductions = append(deductions, Deduction{Reason: "urgent symptom reports", Count: n, Points: points})
	}
	if score < 0 {
		score = 0
	}

	status := scoreStatus(score)
	return &DailyInsights{
		Score:           score,
		Status:          status,
		Date:            now.Format("2006-01-02"),
		WindowDays:      windowDays,
		Highlight:       scoreHighlight(status),
		Deductions:      deductions,
		Risks:           buildRisks(f),
		Recommendations: buildRecommendations(f),
		GeneratedAt:     now,
	}, nil
}

func buildRisks(f windowFindings) []Risk {
	risks := []Risk{}
	if len(f.criticalLabs) > 0 {
		risks = append(risks, Risk{
			Name:           "Critical lab results",
			Level:          "high",
			Factors:        dedupe(f.criticalLabs),
			Recommendation: "Discuss these results with your doctor as soon as possible.",
		})
	}
	if len(f.abnormalVitals) > 0 {
		risks = append(risks, Risk{
			Name:           "Vitals outside normal range",
			Level:          "moderate",
			Factors:        dedupe(f.abnormalVitals),
			Recommendation: "Keep monitoring and bring the readings to your next visit.",
		})
	}
	if f.urgentCount+f.emergencyCount > 0 {
		level := "moderate"
		if f.emergencyCount > 0 {
			level = "high"
		}
		risks = append(risks, Risk{
			Name:           "Recent urgent symptoms",
			Level:          level,
			Factors:        dedupe(f.urgentSymptoms),
			Recommendation: "Book a consultation to follow up on these symptoms.",
		})
	}
	return risks
}

func buildRecommendations(f windowFindings) []Recommendation {
	recs := []Recommendation{}
	if len(f.criticalLabs) > 0 {
		recs = append(recs, Recommendation{
			Category:    "labs",
			Title:       "Review critical results",
			Description: "One or more recent lab results need a clinician's attention.",
			Priority:    "high",
			ActionType:  "appointment",
		})
	}
	if len(f.abnormalVitals) > 0 {
		recs = append(recs, Recommendation{
			Category:    "monitoring",
			Title:       "Track your vitals daily",
			Description: "Recent readings fell outside the normal range.",
			Priority:    "medium",
			ActionType:  "tracking",
		})
	}
	if f.vitalReadings == 0 {
		recs = append(recs, Recommendation{
			Category:    "monitoring",
			Title:       "Record your vitals",
			Description: "No readings this week. Regular measurements make your insights more accurate.",
			Priority:    "low",
			ActionType:  "tracking",
		})
	}
	recs = append(recs, Recommendation{
		Category:    "lifestyle",
		Title:       "Protect your sleep",
		Description: "Aim for 7-8 hours per night.",
		Priority:    "medium",
		ActionType:  "habit_change",
	})
	return recs
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Weekly compares timeline volume for the trailing seven days against
// the seven before and tallies how the week's lab results were flagged.
func (s *Service) Weekly(ctx context.Context, userID uuid.UUID) (*WeeklyReport, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("user id is required", "user_id")
	}

	now := time.Now().UTC()
	weekStart := now.AddDate(0, 0, -windowDays)
	prevStart := now.AddDate(0, 0, -2*windowDays)
	events, err := s.eventsSince(ctx, userID, prevStart)
	if err != nil {
		return nil, err
	}

	current := make(map[twin.EventType]int)
	previous := make(map[twin.EventType]int)
	labStatuses := map[string]int{
		labs.StatusNormal:   0,
		labs.StatusLow:      0,
		labs.StatusHigh:     0,
		labs.StatusCritical: 0,
	}
	for _, e := range events {
		if e.Timestamp.Before(weekStart) {
			previous[e.EventType]++
			continue
		}
		current[e.EventType]++
		if p, ok := e.Payload.(twin.LabResultPayload); ok && p.Status != "" {
			labStatuses[p.Status]++
		}
	}

	counts := make([]EventTypeCount, 0, len(orderedEventTypes))
	totalCurrent, totalPrevious := 0, 0
	for _, t := range orderedEventTypes {
		counts = append(counts, EventTypeCount{
			EventType: string(t),
			Count:     current[t],
			Previous:  previous[t],
		})
		totalCurrent += current[t]
		totalPrevious += previous[t]
	}

	return &WeeklyReport{
		WeekStart:     weekStart.Format("2006-01-02"),
		WeekEnd:       now.Format("2006-01-02"),
		TotalEvents:   totalCurrent,
		PreviousTotal: totalPrevious,
		EventCounts:   counts,
		LabStatuses:   labStatuses,
	}, nil
}
