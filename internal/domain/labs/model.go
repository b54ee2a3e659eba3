package labs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusNormal   = "normal"
	StatusLow      = "low"
	StatusHigh     = "high"
	StatusCritical = "critical"
)

// LabResult maps to the lab_results table. Status is derived at creation
// from the value and reference range, never supplied by the client.
type LabResult struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	TestName       string    `db:"test_name" json:"test_name"`
	Value          float64   `db:"value" json:"value"`
	Unit           string    `db:"unit" json:"unit"`
	ReferenceRange *string   `db:"reference_range" json:"reference_range,omitempty"`
	Status         string    `db:"status" json:"status"`
	TestDate       time.Time `db:"test_date" json:"test_date"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TrendPoint is one entry in a per-test history, ordered by date.
type TrendPoint struct {
	Value  float64   `json:"value"`
	Unit   string    `json:"unit"`
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

// Trend is the full history for one test name.
type Trend struct {
	TestName string       `json:"test_name"`
	Points   []TrendPoint `json:"points"`
}

// StatusPolicy holds the critical-deviation multipliers applied outside a
// reference range. A value below low times CriticalLowFactor, or above high
// times CriticalHighFactor, classifies as critical regardless of low/high.
type StatusPolicy struct {
	CriticalLowFactor  float64
	CriticalHighFactor float64
}

// DefaultStatusPolicy mirrors the production defaults (0.7 low, 1.5 high).
func DefaultStatusPolicy() StatusPolicy {
	return StatusPolicy{CriticalLowFactor: 0.7, CriticalHighFactor: 1.5}
}

// Classify derives a lab status from value and an optional "low-high"
// reference range. A missing or unparseable range classifies as normal.
func (p StatusPolicy) Classify(value float64, referenceRange string) string {
	if referenceRange == "" {
		return StatusNormal
	}
	low, high, err := ParseReferenceRange(referenceRange)
	if err != nil {
		return StatusNormal
	}
	if value < low*p.CriticalLowFactor || value > high*p.CriticalHighFactor {
		return StatusCritical
	}
	if value > high {
		return StatusHigh
	}
	if value < low {
		return StatusLow
	}
	return StatusNormal
}

// ParseReferenceRange splits a "low-high" band into its numeric bounds.
func ParseReferenceRange(s string) (low, high float64, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("reference range %q is not of the form low-high", s)
	}
	low, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("reference range %q: bad low bound", s)
	}
	high, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("reference range %q: bad high bound", s)
	}
	if low > high {
		return 0, 0, fmt.Errorf("reference range %q: low exceeds high", s)
	}
	return low, high, nil
}
