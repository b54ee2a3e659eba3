package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type captureIngester struct {
	userID  uuid.UUID
	reading Reading
	calls   int
	err     error
}

func (m *captureIngester) Ingest(_ context.Context, userID uuid.UUID, reading Reading) error {
	m.calls++
	m.userID = userID
	m.reading = reading
	return m.err
}

func newTestBridge(ingester Ingester) *Bridge {
	return &Bridge{
		topic:    "twin/vitals/+",
		ingester: ingester,
		logger:   zerolog.Nop(),
	}
}

func TestBridge_HandleValidReading(t *testing.T) {
	ingester := &captureIngester{}
	b := newTestBridge(ingester)
	userID := uuid.New()

	payload := []byte(`{"device_id":"fitbit-1","vital_type":"heart_rate","value":72,"unit":"bpm","recorded_at":"2026-08-20T10:00:00Z"}`)
	if err := b.handle("twin/vitals/"+userID.String(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if ingester.calls != 1 {
		t.Fatalf("expected 1 ingest call, got %d", ingester.calls)
	}
	if ingester.userID != userID {
		t.Errorf("user = %s, want %s", ingester.userID, userID)
	}
	if ingester.reading.VitalType != "heart_rate" {
		t.Errorf("vital_type = %q, want heart_rate", ingester.reading.VitalType)
	}
	if ingester.reading.Value != 72 {
		t.Errorf("value = %f, want 72", ingester.reading.Value)
	}
}

func TestBridge_HandleDefaultsRecordedAt(t *testing.T) {
	ingester := &captureIngester{}
	b := newTestBridge(ingester)

	payload := []byte(`{"device_id":"d","vital_type":"steps","value":8000,"unit":"count"}`)
	before := time.Now().UTC()
	if err := b.handle("twin/vitals/"+uuid.NewString(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if ingester.reading.RecordedAt.Before(before.Add(-time.Second)) {
		t.Error("expected recorded_at to default to now")
	}
}

func TestBridge_HandleRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"topic without user id", "twin/vitals/not-a-uuid", `{"vital_type":"steps","value":1}`},
		{"invalid json", "twin/vitals/" + uuid.NewString(), `{not json`},
		{"missing vital_type", "twin/vitals/" + uuid.NewString(), `{"value":1,"unit":"x"}`},
	}

	for _, tt := range tests {
		ingester := &captureIngester{}
		b := newTestBridge(ingester)
		if err := b.handle(tt.topic, []byte(tt.payload)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
		if ingester.calls != 0 {
			t.Errorf("%s: ingester should not be called", tt.name)
		}
	}
}

func TestBridge_HandlePropagatesIngestError(t *testing.T) {
	ingester := &captureIngester{err: context.DeadlineExceeded}
	b := newTestBridge(ingester)

	payload := []byte(`{"vital_type":"steps","value":1,"unit":"count"}`)
	if err := b.handle("twin/vitals/"+uuid.NewString(), payload); err == nil {
		t.Error("expected ingest error to propagate")
	}
}
