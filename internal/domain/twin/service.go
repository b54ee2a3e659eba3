package twin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medinexus/twin/internal/platform/metrics"
	"github.com/medinexus/twin/pkg/apperr"
	"github.com/medinexus/twin/pkg/pagination"
)

// WriteOutcome reports the event half of a feature write. Appended is false
// when the feature record was committed but its timeline event was not; the
// record is never rolled back in that case.
type WriteOutcome struct {
	EventID  uuid.UUID `json:"event_id,omitempty"`
	Appended bool      `json:"event_appended"`
}

type Service struct {
	events EventRepository
	logger zerolog.Logger
}

func NewService(events EventRepository, logger zerolog.Logger) *Service {
	return &Service{events: events, logger: logger}
}

// Append validates and stores one timeline event owned by userID.
func (s *Service) Append(ctx context.Context, userID uuid.UUID, eventType EventType, timestamp time.Time, payload Payload) (*TwinEvent, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("user_id is required", "user_id")
	}
	if !KnownType(eventType) {
		return nil, apperr.Validation(fmt.Sprintf("unknown event type %q", eventType), "event_type")
	}
	if timestamp.IsZero() {
		return nil, apperr.Validation("timestamp is required", "timestamp")
	}
	if payload == nil {
		return nil, apperr.Validation("data_payload is required", "data_payload")
	}
	if payload.EventType() != eventType {
		return nil, apperr.Validation("data_payload does not match event_type", "event_type", "data_payload")
	}

	e := &TwinEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType,
		Timestamp: timestamp,
		Payload:   payload,
	}
	if err := s.events.Append(ctx, e); err != nil {
		metrics.EventAppendFailed(string(eventType))
		return nil, err
	}
	metrics.EventAppended(string(eventType))
	return e, nil
}

// Timeline returns userID's events, most recent first. A window whose since
// lies after its until matches nothing and is not an error.
func (s *Service) Timeline(ctx context.Context, userID uuid.UUID, f QueryFilter) ([]*TwinEvent, int, error) {
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation("user_id is required", "user_id")
	}
	if f.EventType != "" && !KnownType(f.EventType) {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown event type %q", f.EventType), "event_type")
	}
	if f.Since != nil && f.Until != nil && f.Since.After(*f.Until) {
		return []*TwinEvent{}, 0, nil
	}
	if f.Limit <= 0 {
		f.Limit = pagination.DefaultLimit
	}
	if f.Limit > pagination.MaxLimit {
		f.Limit = pagination.MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.events.Query(ctx, userID, f)
}

// Record appends the event describing an already-committed feature record.
// An append failure here is a partial write: the record stands, the gap is
// logged and counted, and the outcome tells the caller no event exists.
func (s *Service) Record(ctx context.Context, userID, recordID uuid.UUID, timestamp time.Time, payload Payload) WriteOutcome {
	e, err := s.Append(ctx, userID, payload.EventType(), timestamp, payload)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("event_type", string(payload.EventType())).
			Str("record_id", recordID.String()).
			Str("user_id", userID.String()).
			Msg("timeline append failed after record commit")
		return WriteOutcome{}
	}
	return WriteOutcome{EventID: e.ID, Appended: true}
}
