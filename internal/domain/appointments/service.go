package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/internal/platform/video"
	"github.com/medinexus/twin/pkg/apperr"
)

// EventRecorder appends consultation events after a record is
// committed.
type EventRecorder interface {
	Record(ctx context.Context, userID, recordID uuid.UUID, timestamp time.Time, payload twin.Payload) twin.WriteOutcome
}

// TokenIssuer mints RTC join tokens for video consultations.
type TokenIssuer interface {
	Enabled() bool
	IssueToken(userID uuid.UUID, channel string) video.Token
}

// Notifier is told when an appointment is confirmed. May be nil.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, userID uuid.UUID, a *Appointment)
}

type Service struct {
	appts    Repository
	events   EventRecorder
	rtc      TokenIssuer
	notifier Notifier
}

func NewService(appts Repository, events EventRecorder, rtc TokenIssuer, notifier Notifier) *Service {
	return &Service{appts: appts, events: events, rtc: rtc, notifier: notifier}
}

type CreateInput struct {
	DoctorName      string    `json:"doctor_name"`
	Specialty       string    `json:"specialty"`
	AppointmentType string    `json:"appointment_type"`
	AppointmentDate time.Time `json:"appointment_date"`
	DurationMinutes *int      `json:"duration_minutes"`
	Reason          string    `json:"reason"`
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Appointment, twin.WriteOutcome, error) {
	if userID == uuid.Nil {
		return nil, twin.WriteOutcome{}, apperr.Validation("user_id is required")
	}
	var missing []string
	if in.DoctorName == "" {
		missing = append(missing, "doctor_name")
	}
	if in.AppointmentType == "" {
		missing = append(missing, "appointment_type")
	}
	if in.AppointmentDate.IsZero() {
		missing = append(missing, "appointment_date")
	}
	if len(missing) > 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("missing required fields", missing...)
	}
	if !ValidType(in.AppointmentType) {
		return nil, twin.WriteOutcome{}, apperr.Validation(
			fmt.Sprintf("unknown appointment type %q", in.AppointmentType), "appointment_type")
	}
	if in.DurationMinutes != nil && *in.DurationMinutes <= 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("duration_minutes must be positive", "duration_minutes")
	}

	appt := &Appointment{
		UserID:          userID,
		DoctorName:      in.DoctorName,
		AppointmentType: in.AppointmentType,
		AppointmentDate: in.AppointmentDate.UTC(),
		DurationMinutes: in.DurationMinutes,
		Status:          StatusScheduled,
	}
	if in.Specialty != "" {
		appt.Specialty = &in.Specialty
	}
	if in.Reason != "" {
		appt.Reason = &in.Reason
	}
	if in.AppointmentType == TypeVideo {
		link := fmt.Sprintf("https://meet.medinexus.health/%s", uuid.New())
		appt.MeetingLink = &link
	}

	if err := s.appts.Create(ctx, appt); err != nil {
		return nil, twin.WriteOutcome{}, err
	}

	outcome := s.events.Record(ctx, userID, appt.ID, appt.AppointmentDate, twin.ConsultationPayload{
		AppointmentID:   appt.ID,
		AppointmentType: appt.AppointmentType,
		DoctorName:      appt.DoctorName,
	})
	return appt, outcome, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f Filter) ([]*Appointment, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown status %q", f.Status), "status")
	}
	return s.appts.List(ctx, userID, f)
}

// UpdateStatus moves the appointment through its lifecycle and raises a
// notification when it becomes confirmed.
func (s *Service) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, apperr.Validation(fmt.Sprintf("unknown status %q", status), "status")
	}

	appt, err := s.appts.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, status) {
		return nil, apperr.Validation(
			fmt.Sprintf("cannot change status from %q to %q", appt.Status, status), "status")
	}

	appt.Status = status
	if err := s.appts.UpdateStatus(ctx, appt); err != nil {
		return nil, err
	}
	if status == StatusConfirmed && s.notifier != nil {
		s.notifier.AppointmentConfirmed(ctx, userID, appt)
	}
	return appt, nil
}

// VideoToken mints an RTC join token for a video appointment. The
// appointment ID doubles as the channel name so both participants land
// in the same room.
func (s *Service) VideoToken(ctx context.Context, userID, id uuid.UUID) (video.Token, error) {
	appt, err := s.appts.GetByID(ctx, userID, id)
	if err != nil {
		return video.Token{}, err
	}
	if appt.AppointmentType != TypeVideo {
		return video.Token{}, apperr.Validation("appointment is not a video consultation", "appointment_type")
	}
	if Terminal(appt.Status) {
		return video.Token{}, apperr.Validation(
			fmt.Sprintf("cannot join a %s appointment", appt.Status), "status")
	}
	if s.rtc == nil || !s.rtc.Enabled() {
		return video.Token{}, apperr.Upstream("video", errors.New("provider credentials are not configured"))
	}
	return s.rtc.IssueToken(userID, appt.ID.String()), nil
}

// EndVideo completes a video consultation and appends the session-end
// event carrying the call duration.
func (s *Service) EndVideo(ctx context.Context, userID, id uuid.UUID, durationMinutes int) (*Appointment, twin.WriteOutcome, error) {
	if durationMinutes <= 0 {
		return nil, twin.WriteOutcome{}, apperr.Validation("duration_minutes must be positive", "duration_minutes")
	}

	appt, err := s.appts.GetByID(ctx, userID, id)
	if err != nil {
		return nil, twin.WriteOutcome{}, err
	}
	if appt.AppointmentType != TypeVideo {
		return nil, twin.WriteOutcome{}, apperr.Validation("appointment is not a video consultation", "appointment_type")
	}
	if !CanTransition(appt.Status, StatusCompleted) {
		return nil, twin.WriteOutcome{}, apperr.Validation(
			fmt.Sprintf("cannot complete a %s appointment", appt.Status), "status")
	}

	appt.Status = StatusCompleted
	if err := s.appts.UpdateStatus(ctx, appt); err != nil {
		return nil, twin.WriteOutcome{}, err
	}

	outcome := s.events.Record(ctx, userID, appt.ID, time.Now().UTC(), twin.ConsultationPayload{
		AppointmentID:   appt.ID,
		AppointmentType: "video_end",
		DurationMinutes: durationMinutes,
	})
	return appt, outcome, nil
}
