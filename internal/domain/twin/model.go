package twin

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType tags a timeline event. The set is closed: appends and payload
// decoding reject anything outside it.
type EventType string

const (
	EventSymptom      EventType = "symptom"
	EventLabResult    EventType = "lab_result"
	EventDocument     EventType = "document"
	EventVital        EventType = "vital"
	EventConsultation EventType = "consultation"
	EventTreatment    EventType = "treatment"
)

var eventTypes = map[EventType]bool{
	EventSymptom:      true,
	EventLabResult:    true,
	EventDocument:     true,
	EventVital:        true,
	EventConsultation: true,
	EventTreatment:    true,
}

// KnownType reports whether t belongs to the closed event-type set.
func KnownType(t EventType) bool { return eventTypes[t] }

// TwinEvent maps to the twin_events table. The table is append-only: events
// are never updated, and deleting the record an event describes leaves the
// event on the timeline.
type TwinEvent struct {
	ID        uuid.UUID `db:"id" json:"event_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	EventType EventType `db:"event_type" json:"event_type"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Payload   Payload   `db:"data_payload" json:"data_payload"`
}

// Payload is the typed data_payload union, one variant per event type.
// DecodePayload is the only path from raw JSON into a Payload, so a variant
// can never carry the wrong tag.
type Payload interface {
	EventType() EventType
}

// SymptomPayload summarizes a symptom check.
type SymptomPayload struct {
	CheckID  uuid.UUID `json:"check_id"`
	Symptoms []string  `json:"symptoms"`
	Urgency  string    `json:"urgency"`
}

func (SymptomPayload) EventType() EventType { return EventSymptom }

// LabResultPayload summarizes a lab result with its derived status.
type LabResultPayload struct {
	LabID          uuid.UUID `json:"lab_id"`
	TestName       string    `json:"test_name"`
	Value          float64   `json:"value"`
	Unit           string    `json:"unit"`
	Status         string    `json:"status"`
	ReferenceRange string    `json:"reference_range,omitempty"`
}

func (LabResultPayload) EventType() EventType { return EventLabResult }

// DocumentPayload summarizes an uploaded document.
type DocumentPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	DocType    string    `json:"doc_type"`
}

func (DocumentPayload) EventType() EventType { return EventDocument }

// VitalPayload summarizes one vital reading.
type VitalPayload struct {
	VitalID   uuid.UUID `json:"vital_id"`
	VitalType string    `json:"vital_type"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
}

func (VitalPayload) EventType() EventType { return EventVital }

// ConsultationPayload summarizes an appointment booking or the end of a
// video session. DoctorName is set on bookings, DurationMinutes on video_end.
type ConsultationPayload struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	AppointmentType string    `json:"appointment_type"`
	DoctorName      string    `json:"doctor_name,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

func (ConsultationPayload) EventType() EventType { return EventConsultation }

// TreatmentPayload summarizes a care plan.
type TreatmentPayload struct {
	PlanID uuid.UUID `json:"plan_id"`
	Title  string    `json:"title"`
}

func (TreatmentPayload) EventType() EventType { return EventTreatment }

// DecodePayload unmarshals raw JSON into the payload variant for t. Empty
// input decodes to the variant's zero value; unknown types are an error, so
// every stored payload round-trips through exactly one variant.
func DecodePayload(t EventType, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch t {
	case EventSymptom:
		var p SymptomPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode symptom payload: %w", err)
		}
		return p, nil
	case EventLabResult:
		var p LabResultPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode lab_result payload: %w", err)
		}
		return p, nil
	case EventDocument:
		var p DocumentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode document payload: %w", err)
		}
		return p, nil
	case EventVital:
		var p VitalPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode vital payload: %w", err)
		}
		return p, nil
	case EventConsultation:
		var p ConsultationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode consultation payload: %w", err)
		}
		return p, nil
	case EventTreatment:
		var p TreatmentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode treatment payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}
