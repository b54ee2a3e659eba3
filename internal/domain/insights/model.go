package insights

import "time"

// Score bands for the daily health score.
const (
	StatusExcellent = "excellent"
	StatusGood      = "good"
	StatusFair      = "fair"
	StatusPoor      = "poor"
)

func scoreStatus(score int) string {
	switch {
	case score >= 85:
		return StatusExcellent
	case score >= 70:
		return StatusGood
	case score >= 50:
		return StatusFair
	default:
		return StatusPoor
	}
}

func scoreHighlight(status string) string {
	switch status {
	case StatusExcellent:
		return "Your recent health data looks stable. Keep it up."
	case StatusGood:
		return "A mostly steady week, with a few readings worth watching."
	case StatusFair:
		return "Several recent findings need attention. Review the risks below."
	default:
		return "Your recent data shows serious findings. Please contact your doctor."
	}
}

// Deduction is one scored penalty class applied to the daily score.
type Deduction struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
	Points int    `json:"points"`
}

// Risk names a finding class with the data points behind it.
type Risk struct {
	Name           string   `json:"name"`
	Level          string   `json:"level"`
	Factors        []string `json:"factors"`
	Recommendation string   `json:"recommendation"`
}

type Recommendation struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	ActionType  string `json:"action_type"`
}

// DailyInsights is the computed-on-read health score for the trailing
// window. Nothing here is persisted.
type DailyInsights struct {
	Score           int              `json:"score"`
	Status          string           `json:"status"`
	Date            string           `json:"date"`
	WindowDays      int              `json:"window_days"`
	Highlight       string           `json:"highlight"`
	Deductions      []Deduction      `json:"deductions"`
	Risks           []Risk           `json:"risks"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// EventTypeCount compares one event type's volume against the prior week.
type EventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
	Previous  int    `json:"previous"`
}

// WeeklyReport summarizes timeline activity for the trailing seven days
// against the seven before, plus how the week's lab results were flagged.
type WeeklyReport struct {
	WeekStart     string           `json:"week_start"`
	WeekEnd       string           `json:"week_end"`
	TotalEvents   int              `json:"total_events"`
	PreviousTotal int              `json:"previous_total"`
	EventCounts   []EventTypeCount `json:"event_counts"`
	LabStatuses   map[string]int   `json:"lab_statuses"`
}
