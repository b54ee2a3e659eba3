package notifications

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryLab         = "lab"
	CategoryAppointment = "appointment"
	CategoryBilling     = "billing"
)

// Notification is one in-app notification. ReadAt is nil while unread
// and keeps the first-read time once marked.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Category  string     `db:"category" json:"category"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
