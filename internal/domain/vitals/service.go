package vitals

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/internal/platform/mqtt"
	"github.com/medinexus/twin/pkg/apperr"
)

// maxBatchSize caps one health-sync upload.
const maxBatchSize = 500

// EventRecorder appends the vital event after a reading is committed.
type EventRecorder interface {
	Record(ctx context.Context, userID, recordID uuid.UUID, timestamp time.Time, payload twin.Payload) twin.WriteOutcome
}

type Service struct {
	vitals  Repository
	devices DeviceRepository
	events  EventRecorder
}

func NewService(vitals Repository, devices DeviceRepository, events EventRecorder) *Service {
	return &Service{vitals: vitals, devices: devices, events: events}
}

type CreateInput struct {
	VitalType  string     `json:"vital_type"`
	Value      *float64   `json:"value"`
	Unit       string     `json:"unit"`
	RecordedAt *time.Time `json:"recorded_at"`
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Vital, twin.WriteOutcome, error) {
	return s.record(ctx, userID, nil, in)
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, deviceID *uuid.UUID, in CreateInput) (*Vital, twin.WriteOutcome, error) {
	if userID == uuid.Nil {
		return nil, twin.WriteOutcome{}, apperr.Validation("user_id is required")
	}
	var missing []string
	if in.VitalType == "" {
		missing = append(missing, "vital_type")
	}
	if in.Value == nil {
		missing = append(missing, "value")
	}
	if in.Unit == "" {
		missing = append(missing, "unit")
	}
	if len(missing) > 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("missing required fields", missing...)
	}
	if math.IsNaN(*in.Value) || math.IsInf(*in.Value, 0) {
		return nil, twin.WriteOutcome{}, apperr.Validation("value must be a finite number", "value")
	}

	v := &Vital{
		UserID:     userID,
		VitalType:  in.VitalType,
		Value:      *in.Value,
		Unit:       in.Unit,
		RecordedAt: time.Now().UTC(),
		DeviceID:   deviceID,
	}
	if in.RecordedAt != nil {
		v.RecordedAt = in.RecordedAt.UTC()
	}

	if err := s.vitals.Create(ctx, v); err != nil {
		return nil, twin.WriteOutcome{}, err
	}

	outcome := s.events.Record(ctx, userID, v.ID, v.RecordedAt, twin.VitalPayload{
		VitalID:   v.ID,
		VitalType: v.VitalType,
		Value:     v.Value,
		Unit:      v.Unit,
	})
	return v, outcome, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, vitalType string, limit, offset int) ([]*Vital, int, error) {
	return s.vitals.List(ctx, userID, vitalType, limit, offset)
}

// Latest returns the most recent reading per vital type.
func (s *Service) Latest(ctx context.Context, userID uuid.UUID) (map[string]twin.VitalSnapshot, error) {
	return s.vitals.LatestByType(ctx, userID)
}

// Summary aggregates readings per type over the trailing window.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, days int) (map[string]TypeSummary, error) {
	if days < 1 || days > 365 {
		return nil, apperr.Validation("days must be between 1 and 365", "days")
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.vitals.Summarize(ctx, userID, since)
}

type DeviceInput struct {
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
}

func (s *Service) RegisterDevice(ctx context.Context, userID uuid.UUID, in DeviceInput) (*Device, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("user_id is required")
	}
	var missing []string
	if in.DeviceName == "" {
		missing = append(missing, "device_name")
	}
	if in.DeviceType == "" {
		missing = append(missing, "device_type")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing required fields", missing...)
	}

	d := &Device{UserID: userID, DeviceName: in.DeviceName, DeviceType: in.DeviceType}
	if err := s.devices.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Devices(ctx context.Context, userID uuid.UUID) ([]*Device, error) {
	return s.devices.List(ctx, userID)
}

type BatchReading struct {
	VitalType  string     `json:"vital_type"`
	Value      *float64   `json:"value"`
	Unit       string     `json:"unit"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type BatchError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BatchResult reports a health-sync upload. Each accepted reading is
// one committed record and, when the append succeeded, one timeline
// event; rejected readings are reported per index and never abort the
// rest of the batch.
type BatchResult struct {
	Accepted       int          `json:"accepted"`
	Rejected       int          `json:"rejected"`
	EventsAppended int          `json:"events_appended"`
	Errors         []BatchError `json:"errors"`
}

func (s *Service) SyncBatch(ctx context.Context, userID, deviceID uuid.UUID, readings []BatchReading) (*BatchResult, error) {
	device, err := s.devices.GetByID(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, apperr.Validation("readings are required", "readings")
	}
	if len(readings) > maxBatchSize {
		return nil, apperr.Validation(
			fmt.Sprintf("batch exceeds %d readings", maxBatchSize), "readings")
	}

	res := &BatchResult{Errors: []BatchError{}}
	for i, reading := range readings {
		in := CreateInput{
			VitalType:  reading.VitalType,
			Value:      reading.Value,
			Unit:       reading.Unit,
			RecordedAt: reading.RecordedAt,
		}
		_, outcome, err := s.record(ctx, userID, &device.ID, in)
		if err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, BatchError{Index: i, Message: batchMessage(err)})
			continue
		}
		res.Accepted++
		if outcome.Appended {
			res.EventsAppended++
		}
	}

	if res.Accepted > 0 {
		_ = s.devices.TouchSync(ctx, userID, device.ID, time.Now().UTC())
	}
	return res, nil
}

func batchMessage(err error) string {
	msg := err.Error()
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(fields, ", "))
	}
	return msg
}

// Ingest feeds one MQTT device reading through the same write path the
// HTTP API uses, so the record/event invariant holds for bridged
// readings too.
func (s *Service) Ingest(ctx context.Context, userID uuid.UUID, reading mqtt.Reading) error {
	deviceID, err := uuid.Parse(reading.DeviceID)
	if err != nil {
		return apperr.Validation("device_id must be a UUID", "device_id")
	}
	device, err := s.devices.GetByID(ctx, userID, deviceID)
	if err != nil {
		return err
	}

	in := CreateInput{VitalType: reading.VitalType, Value: &reading.Value, Unit: reading.Unit}
	if !reading.RecordedAt.IsZero() {
		at := reading.RecordedAt
		in.RecordedAt = &at
	}
	if _, _, err := s.record(ctx, userID, &device.ID, in); err != nil {
		return err
	}
	_ = s.devices.TouchSync(ctx, userID, device.ID, time.Now().UTC())
	return nil
}
