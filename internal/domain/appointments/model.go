package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Consultation formats.
const (
	TypeVideo    = "video"
	TypeInPerson = "in_person"
)

// ValidType reports whether t is a known appointment type.
func ValidType(t string) bool {
	return t == TypeVideo || t == TypeInPerson
}

// Appointment lifecycle. Completed and cancelled are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var transitions = map[string]map[string]bool{
	StatusScheduled:  {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusInProgress: true, StatusCompleted: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an appointment may move from one status
// to another.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Terminal reports whether a status ends the appointment.
func Terminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment is a booked consultation with a doctor. Video
// appointments carry a minted meeting link and can issue RTC join
// tokens; in-person ones cannot.
type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	DoctorName      string    `db:"doctor_name" json:"doctor_name"`
	Specialty       *string   `db:"specialty" json:"specialty,omitempty"`
	AppointmentType string    `db:"appointment_type" json:"appointment_type"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Status          string    `db:"status" json:"status"`
	MeetingLink     *string   `db:"meeting_link" json:"meeting_link,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
