package notifications

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medinexus/twin/internal/domain/appointments"
	"github.com/medinexus/twin/internal/domain/identity"
	"github.com/medinexus/twin/internal/domain/labs"
	"github.com/medinexus/twin/internal/platform/notification"
)

// Recipients resolves a user ID to contact details for delivery.
// *identity repository implementations satisfy it.
type Recipients interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Service is the in-process notification center. Writers call the
// raise methods; delivery failures are logged and never propagate back
// into the write path that raised them.
type Service struct {
	repo       Repository
	templates  *notification.TemplateEngine
	email      notification.EmailSender
	sms        notification.SMSSender
	recipients Recipients
	logger     zerolog.Logger
}

func NewService(
	repo Repository,
	templates *notification.TemplateEngine,
	email notification.EmailSender,
	sms notification.SMSSender,
	recipients Recipients,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		templates:  templates,
		email:      email,
		sms:        sms,
		recipients: recipients,
		logger:     logger,
	}
}

// LabCritical raises a notification for a critical lab result. Critical
// results are time-sensitive, so the rendered body also goes out over
// SMS when a phone number is on file.
func (s *Service) LabCritical(ctx context.Context, userID uuid.UUID, lab *labs.LabResult) {
	s.notify(ctx, userID, CategoryLab, "lab-critical", map[string]string{
		"test_name": lab.TestName,
		"value":     strconv.FormatFloat(lab.Value, 'f', -1, 64),
		"unit":      lab.Unit,
	}, true)
}

// AppointmentConfirmed raises a notification for a confirmed booking.
func (s *Service) AppointmentConfirmed(ctx context.Context, userID uuid.UUID, appt *appointments.Appointment) {
	s.notify(ctx, userID, CategoryAppointment, "appointment-confirmed", map[string]string{
		"doctor_name":      appt.DoctorName,
		"appointment_type": appt.AppointmentType,
		"date":             appt.AppointmentDate.Format("Jan 2, 2006 at 15:04 MST"),
	}, false)
}

// SubscriptionActivated raises a notification when a payment completes.
func (s *Service) SubscriptionActivated(ctx context.Context, userID uuid.UUID, planName string) {
	s.notify(ctx, userID, CategoryBilling, "subscription-activated", map[string]string{
		"plan_name": planName,
	}, false)
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, category, templateID string, data map[string]string, smsEscalate bool) {
	subject, body, err := s.templates.Render(templateID, data)
	if err != nil {
		s.logger.Error().Err(err).Str("template", templateID).Msg("render notification")
		return
	}

	n := &Notification{UserID: userID, Category: category, Title: subject, Body: body}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("category", category).Msg("store notification")
	}
	s.send(ctx, userID, templateID, subject, body, smsEscalate)
}

func (s *Service) send(ctx context.Context, userID uuid.UUID, templateID, subject, body string, smsEscalate bool) {
	user, err := s.recipients.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("notification recipient lookup")
		return
	}
	tmpl, ok := s.templates.Get(templateID)
	if !ok {
		return
	}

	switch tmpl.Channel {
	case notification.ChannelEmail:
		if s.email != nil {
			if err := s.email.SendEmail(ctx, user.Email, subject, body); err != nil {
				s.logger.Error().Err(err).Str("template", templateID).Msg("send notification email")
			}
		}
		if smsEscalate && s.sms != nil && user.Phone != nil {
			if err := s.sms.SendSMS(ctx, *user.Phone, body); err != nil {
				s.logger.Error().Err(err).Str("template", templateID).Msg("send notification sms")
			}
		}
	case notification.ChannelSMS:
		if s.sms != nil && user.Phone != nil {
			if err := s.sms.SendSMS(ctx, *user.Phone, body); err != nil {
				s.logger.Error().Err(err).Str("template", templateID).Msg("send notification sms")
			}
		}
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.List(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
