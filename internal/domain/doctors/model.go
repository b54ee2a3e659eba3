// Package doctors serves the read-only practitioner directory backing
// the appointment booking UI. Rows are seeded by migration; there is no
// write API.
package doctors

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctors table.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Specialty       string    `db:"specialty" json:"specialty"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	YearsExperience int       `db:"years_experience" json:"years_experience"`
	Rating          float64   `db:"rating" json:"rating"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
