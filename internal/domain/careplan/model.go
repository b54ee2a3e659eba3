package careplan

import (
	"time"

	"github.com/google/uuid"
)

// Care plan lifecycle. Completed and cancelled are terminal.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var transitions = map[string]map[string]bool{
	StatusActive:    {StatusPaused: true, StatusCompleted: true, StatusCancelled: true},
	StatusPaused:    {StatusActive: true, StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is a known care plan status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a plan may move from one status to
// another. A plan never transitions to its current status.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Terminal reports whether a status ends the plan.
func Terminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CarePlan is a treatment program the patient follows: a medication
// course, physiotherapy, a lifestyle program. Goals are free-text
// targets the patient and clinician agreed on.
type CarePlan struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Title         string     `db:"title" json:"title"`
	Description   *string    `db:"description" json:"description,omitempty"`
	Goals         []string   `db:"goals" json:"goals"`
	DurationWeeks *int       `db:"duration_weeks" json:"duration_weeks,omitempty"`
	Status        string     `db:"status" json:"status"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	EndedAt       *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
