package symptoms

import (
	"time"

	"github.com/google/uuid"
)

// Triage urgency levels, most severe first. UrgencyUnknown marks a
// check whose analysis never ran.
const (
	UrgencyEmergency = "emergency"
	UrgencyUrgent    = "urgent"
	UrgencyStandard  = "standard"
	UrgencyRoutine   = "routine"
	UrgencyUnknown   = "unknown"
)

const (
	StatusAnalyzed   = "analyzed"
	StatusUnanalyzed = "unanalyzed"
)

// Disclaimer is attached to every analysis shown to a patient.
const Disclaimer = "This information is for educational purposes only and does not replace professional medical advice."

// Condition is one differential the model considered plausible.
type Condition struct {
	Name        string `json:"name"`
	Probability string `json:"probability"`
	Description string `json:"description,omitempty"`
}

// Analysis is the triage verdict stored with a symptom check. Status is
// unanalyzed when the provider was unavailable and the fallback was
// stored instead.
type Analysis struct {
	Summary            string      `json:"summary"`
	Urgency            string      `json:"urgency"`
	PossibleConditions []Condition `json:"possible_conditions,omitempty"`
	Recommendations    []string    `json:"recommendations"`
	FollowUpQuestions  []string    `json:"follow_up_questions,omitempty"`
	Status             string      `json:"status"`
	AnalyzedAt         time.Time   `json:"analyzed_at"`
}

// FallbackAnalysis is stored when the provider is unreachable or
// misconfigured, so a check always carries an answer the patient can
// act on.
func FallbackAnalysis(now time.Time) Analysis {
	return Analysis{
		Summary:         "analysis unavailable",
		Urgency:         UrgencyUnknown,
		Recommendations: []string{"See a clinician if symptoms persist or worsen."},
		Status:          StatusUnanalyzed,
		AnalyzedAt:      now,
	}
}

// NormalizeUrgency coerces a model-supplied triage level onto the
// closed set, defaulting to standard for anything unrecognized.
func NormalizeUrgency(s string) string {
	switch s {
	case UrgencyEmergency, UrgencyUrgent, UrgencyStandard, UrgencyRoutine:
		return s
	default:
		return UrgencyStandard
	}
}

type SymptomCheck struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Symptoms  []string  `db:"symptoms" json:"symptoms"`
	Duration  *string   `db:"duration" json:"duration,omitempty"`
	Severity  *string   `db:"severity" json:"severity,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	Analysis  Analysis  `db:"analysis" json:"analysis"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
