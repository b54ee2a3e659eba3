package documents

import (
	"time"

	"github.com/google/uuid"
)

// Summary states. A document whose summary call failed keeps its record
// with status unanalyzed rather than being rolled back.
const (
	SummaryStatusSummarized = "summarized"
	SummaryStatusUnanalyzed = "unanalyzed"
	SummaryStatusNone       = "none"
)

// FallbackSummary is stored when the summarization call fails or the
// provider is not configured.
const FallbackSummary = "summary unavailable"

// Document is a patient-uploaded medical document: a referral letter, a
// discharge note, an imaging report. Content is optional free text; the
// attachment, if any, lives in the blob store under FileID.
type Document struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	UserID        uuid.UUID      `db:"user_id" json:"user_id"`
	Title         string         `db:"title" json:"title"`
	DocType       string         `db:"doc_type" json:"doc_type"`
	Content       *string        `db:"content" json:"content,omitempty"`
	Summary       *string        `db:"summary" json:"summary,omitempty"`
	SummaryStatus string         `db:"summary_status" json:"summary_status"`
	FileID        *string        `db:"file_id" json:"file_id,omitempty"`
	FileName      *string        `db:"file_name" json:"file_name,omitempty"`
	Analysis      *ImageAnalysis `db:"image_analysis" json:"image_analysis,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Analysis states for an attached image.
const (
	AnalysisStatusAnalyzed   = "analyzed"
	AnalysisStatusUnanalyzed = "unanalyzed"
)

// ImageAnalysis is the verdict produced for an attached image. When the
// provider call fails, the fallback verdict is stored with status
// unanalyzed so the patient can see a review is still pending.
type ImageAnalysis struct {
	Findings        []string  `json:"findings"`
	Impression      string    `json:"impression"`
	Recommendations []string  `json:"recommendations"`
	Status          string    `json:"status"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// FallbackAnalysis is the verdict recorded when image analysis is
// unavailable.
func FallbackAnalysis(now time.Time) *ImageAnalysis {
	return &ImageAnalysis{
		Findings:        []string{},
		Impression:      "analysis unavailable",
		Recommendations: []string{"Consult a clinician for a manual review of this image."},
		Status:          AnalysisStatusUnanalyzed,
		AnalyzedAt:      now,
	}
}
