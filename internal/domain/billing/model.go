package billing

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Subscription statuses. A checkout creates a pending subscription;
// the provider webhook moves it to active once the session completes.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// PlanLimits bounds what a plan allows per billing period. -1 means
// unlimited.
type PlanLimits struct {
	Doctors          int `json:"doctors"`
	PatientsPerMonth int `json:"patients_per_month"`
	VideoMinutes     int `json:"video_minutes"`
}

// Plan is one entry of the static subscription catalog.
type Plan struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Price    float64    `json:"price"`
	Currency string     `json:"currency"`
	Features []string   `json:"features"`
	Limits   PlanLimits `json:"limits"`
	Popular  bool       `json:"popular,omitempty"`
}

// PriceCents returns the plan price in the currency's minor unit.
func (p Plan) PriceCents() int64 {
	return int64(math.Round(p.Price * 100))
}

var catalog = []Plan{
	{
		ID:       "starter",
		Name:     "Starter",
		Price:    99.00,
		Currency: "usd",
		Features: []string{
			"Up to 5 doctors",
			"Up to 100 patients/month",
			"Basic analytics",
			"Email support",
		},
		Limits: PlanLimits{Doctors: 5, PatientsPerMonth: 100, VideoMinutes: 500},
	},
	{
		ID:       "professional",
		Name:     "Professional",
		Price:    299.00,
		Currency: "usd",
		Features: []string{
			"Up to 20 doctors",
			"Up to 500 patients/month",
			"Advanced analytics",
			"AI insights",
			"Priority support",
		},
		Limits:  PlanLimits{Doctors: 20, PatientsPerMonth: 500, VideoMinutes: 2000},
		Popular: true,
	},
	{
		ID:       "enterprise",
		Name:     "Enterprise",
		Price:    799.00,
		Currency: "usd",
		Features: []string{
			"Unlimited doctors",
			"Unlimited patients",
			"Full analytics",
			"AI insights + radiology AI",
			"Dedicated account manager",
			"99.9% SLA",
			"Custom integrations",
		},
		Limits: PlanLimits{Doctors: -1, PatientsPerMonth: -1, VideoMinutes: -1},
	},
}

// Plans returns the subscription catalog.
func Plans() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// PlanByID looks up a catalog entry.
func PlanByID(id string) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// Subscription is one purchased (or attempted) plan for a user. The
// provider's checkout session id ties webhook events back to the row.
type Subscription struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	PlanID      string     `db:"plan_id" json:"plan_id"`
	PlanName    string     `db:"plan_name" json:"plan_name"`
	AmountCents int64      `db:"amount_cents" json:"amount_cents"`
	Currency    string     `db:"currency" json:"currency"`
	SessionID   string     `db:"session_id" json:"-"`
	Status      string     `db:"status" json:"status"`
	ActivatedAt *time.Time `db:"activated_at" json:"activated_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// SubscriptionStatus is the caller-facing view of the latest
// subscription, enriched with the catalog's feature list.
type SubscriptionStatus struct {
	Status      string     `json:"status"`
	PlanID      string     `json:"plan_id,omitempty"`
	PlanName    string     `json:"plan_name,omitempty"`
	Features    []string   `json:"features,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}
