package documents

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDocumentJSON(t *testing.T) {
	d := Document{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Title:         "Discharge note",
		DocType:       "discharge",
		SummaryStatus: SummaryStatusNone,
		CreatedAt:     time.Now().UTC(),
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshaling: %v", err)
	}

	if got["summary_status"] != SummaryStatusNone {
		t.Errorf("summary_status = %v, want %q", got["summary_status"], SummaryStatusNone)
	}
	for _, absent := range []string{"file_id", "file_name", "summary", "image_analysis"} {
		if _, ok := got[absent]; ok {
			t.Errorf("empty field %q should be omitted", absent)
		}
	}
}

func TestFallbackAnalysis(t *testing.T) {
	now := time.Now().UTC()
	a := FallbackAnalysis(now)

	if a.Status != AnalysisStatusUnanalyzed {
		t.Errorf("status = %q, want %q", a.Status, AnalysisStatusUnanalyzed)
	}
	if a.Impression != "analysis unavailable" {
		t.Errorf("impression = %q", a.Impression)
	}
	if a.Findings == nil || a.Recommendations == nil {
		t.Error("findings and recommendations must be empty slices, not nil")
	}
	if !a.AnalyzedAt.Equal(now) {
		t.Errorf("analyzed_at = %v, want %v", a.AnalyzedAt, now)
	}
}
