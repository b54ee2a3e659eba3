// Package payments wraps the external checkout provider. Sessions are
// created synchronously with a timeout; completion arrives out of band
// through a signature-verified webhook.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/medinexus/twin/internal/platform/metrics"
)

// CheckoutRequest describes one checkout session to create. Amount is
// in the currency's minor unit (cents).
type CheckoutRequest struct {
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the provider's created session: the ID is stored
// with the subscription and the URL is handed to the client browser.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		http.SetAuthToken(apiKey)
	}

	return &Client{
		http:   http,
		logger: logger.With().Str("component", "payments").Logger(),
	}
}

// Enabled reports whether provider credentials were configured.
func (c *Client) Enabled() bool {
	return c.http.Header.Get("Authorization") != ""
}

// CreateCheckoutSession opens a hosted checkout session with the
// provider and returns its ID and redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	start := time.Now()
	session, err := c.createSession(ctx, req)
	metrics.ObserveUpstream("payments", start, err)
	if err != nil {
		c.logger.Warn().Err(err).Msg("checkout session creation failed")
		return nil, err
	}
	return session, nil
}

func (c *Client) createSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	form := map[string]string{
		"mode":        "payment",
		"amount":      strconv.FormatInt(req.AmountCents, 10),
		"currency":    req.Currency,
		"success_url": req.SuccessURL,
		"cancel_url":  req.CancelURL,
	}
	for k, v := range req.Metadata {
		form["metadata["+k+"]"] = v
	}

	var session CheckoutSession
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&session).
		Post("/v1/checkout/sessions")
	if err != nil {
		return nil, fmt.Errorf("calling checkout endpoint: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provider returned %d", resp.StatusCode())
	}
	if session.ID == "" {
		return nil, fmt.Errorf("provider returned session without id")
	}
	return &session, nil
}

// signatureTolerance bounds how old a webhook timestamp may be before
// the signature is rejected, limiting replay of captured payloads.
const signatureTolerance = 5 * time.Minute

// VerifySignature checks a webhook's signature header against the
// shared secret. The header carries `t=<unix>,v1=<hex hmac>` and the
// HMAC covers "<t>.<payload>".
func VerifySignature(secret string, payload []byte, header string) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	if header == "" {
		return fmt.Errorf("missing signature header")
	}

	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return fmt.Errorf("malformed signature timestamp")
			}
			ts = parsed
		case "v1":
			sig = kv[1]
		}
	}
	if ts == 0 || sig == "" {
		return fmt.Errorf("malformed signature header")
	}

	age := time.Since(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Sign produces a signature header for the given payload, used by
// tests and by the local provider stub.
func Sign(secret string, payload []byte, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
