package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medinexus/twin/internal/platform/payments"
	"github.com/medinexus/twin/pkg/apperr"
)

// StatusNone is returned for callers who never started a checkout.
const StatusNone = "none"

const eventCheckoutCompleted = "checkout.session.completed"

// CheckoutProvider is the slice of the payments client the service
// needs.
type CheckoutProvider interface {
	Enabled() bool
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
}

var _ CheckoutProvider = (*payments.Client)(nil)

// Notifier is told when a subscription becomes active. May be nil.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, userID uuid.UUID, planName string)
}

// TxRunner executes fn atomically. A nil runner executes fn directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo          Repository
	provider      CheckoutProvider
	notifier      Notifier
	tx            TxRunner
	webhookSecret string
	logger        zerolog.Logger
}

func NewService(repo Repository, provider CheckoutProvider, notifier Notifier, tx TxRunner, webhookSecret string, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{
		repo:          repo,
		provider:      provider,
		notifier:      notifier,
		tx:            tx,
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("component", "billing").Logger(),
	}
}

type CheckoutInput struct {
	PlanID    string `json:"plan_id"`
	OriginURL string `json:"origin_url"`
}

type CheckoutResult struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// Checkout opens a provider checkout session for the given plan and
// records a pending subscription keyed by the session id.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("user id is required", "user_id")
	}
	if in.PlanID == "" {
		return nil, apperr.Validation("plan_id is required", "plan_id")
	}
	plan, ok := PlanByID(in.PlanID)
	if !ok {
		return nil, apperr.Validation("unknown plan", "plan_id")
	}
	origin, err := parseOrigin(in.OriginURL)
	if err != nil {
		return nil, err
	}
	if !s.provider.Enabled() {
		return nil, apperr.Upstream("payments", errors.New("provider not configured"))
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		AmountCents: plan.PriceCents(),
		Currency:    plan.Currency,
		SuccessURL:  origin + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   origin + "/billing",
		Metadata: map[string]string{
			"plan_id":   plan.ID,
			"plan_name": plan.Name,
			"user_id":   userID.String(),
		},
	})
	if err != nil {
		return nil, apperr.Upstream("payments", err)
	}

	sub := &Subscription{
		UserID:      userID,
		PlanID:      plan.ID,
		PlanName:    plan.Name,
		AmountCents: plan.PriceCents(),
		Currency:    plan.Currency,
		SessionID:   session.ID,
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("plan_id", plan.ID).
		Str("session_id", session.ID).
		Msg("checkout session created")
	return &CheckoutResult{CheckoutURL: session.URL, SessionID: session.ID}, nil
}

func parseOrigin(raw string) (string, error) {
	if raw == "" {
		return "", apperr.Validation("origin_url is required", "origin_url")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Validation("origin_url must be an absolute http(s) URL", "origin_url")
	}
	return strings.TrimSuffix(raw, "/"), nil
}

// Current returns the caller's latest subscription enriched with the
// catalog's feature list, or a bare "none" status.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*SubscriptionStatus, error) {
	sub, err := s.repo.LatestByUser(ctx, userID)
	if apperr.IsNotFound(err) {
		return &SubscriptionStatus{Status: StatusNone}, nil
	}
	if err != nil {
		return nil, err
	}

	st := &SubscriptionStatus{
		Status:      sub.Status,
		PlanID:      sub.PlanID,
		PlanName:    sub.PlanName,
		ActivatedAt: sub.ActivatedAt,
	}
	if plan, ok := PlanByID(sub.PlanID); ok {
		st.Features = plan.Features
	}
	return st, nil
}

type webhookEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// HandleWebhook processes one signed provider event. Completed
// checkout sessions activate their subscription exactly once; replays
// and events for unknown sessions are acknowledged without effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := payments.VerifySignature(s.webhookSecret, payload, signature); err != nil {
		s.logger.Warn().Err(err).Msg("webhook signature rejected")
		return apperr.Validation("invalid webhook signature")
	}

	var ev webhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return apperr.Validation("malformed webhook payload")
	}
	if ev.Type != eventCheckoutCompleted {
		s.logger.Debug().Str("type", ev.Type).Msg("ignoring webhook event")
		return nil
	}
	if ev.SessionID == "" {
		return apperr.Validation("session_id is required", "session_id")
	}

	var activated *Subscription
	err := s.tx(ctx, func(ctx context.Context) error {
		sub, err := s.repo.GetBySessionID(ctx, ev.SessionID)
		if err != nil {
			return err
		}
		if sub.Status == StatusActive {
			return nil
		}
		now := time.Now().UTC()
		if err := s.repo.Activate(ctx, sub.ID, now); err != nil {
			return err
		}
		sub.Status = StatusActive
		sub.ActivatedAt = &now
		activated = sub
		return nil
	})
	if apperr.IsNotFound(err) {
		// Sessions from other environments share the provider account.
		s.logger.Warn().Str("session_id", ev.SessionID).Msg("webhook for unknown checkout session")
		return nil
	}
	if err != nil {
		return err
	}

	if activated != nil {
		s.logger.Info().
			Str("session_id", activated.SessionID).
			Str("plan_id", activated.PlanID).
			Msg("subscription activated")
		if s.notifier != nil {
			s.notifier.SubscriptionActivated(ctx, activated.UserID, activated.PlanName)
		}
	}
	return nil
}
