// Package ai wraps the external language-model provider behind a small
// client. Callers treat a failure or timeout as a signal to fall back
// to a defined placeholder result; nothing here retries or blocks past
// the configured deadline.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/medinexus/twin/internal/platform/metrics"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls a chat-completion endpoint. Enabled() reports whether
// credentials were configured; when they were not, callers skip the
// call and use their fallback immediately.
type Client struct {
	http   *resty.Client
	model  string
	logger zerolog.Logger
}

func New(baseURL, apiKey, model string, timeout time.Duration, logger zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		http.SetAuthToken(apiKey)
	}

	return &Client{
		http:   http,
		model:  model,
		logger: logger.With().Str("component", "ai").Logger(),
	}
}

// Enabled reports whether the client has credentials to call out with.
func (c *Client) Enabled() bool {
	return c.http.Header.Get("Authorization") != ""
}

// Complete sends one system+user exchange and returns the assistant's
// reply text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	reply, err := c.complete(ctx, system, user)
	metrics.ObserveUpstream("ai", start, err)
	if err != nil {
		c.logger.Warn().Err(err).Msg("completion call failed")
		return "", err
	}
	return reply, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("calling completion endpoint: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("provider returned %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// CompleteJSON asks for a JSON reply and decodes it into out. Models
// often wrap JSON in a markdown code fence despite instructions, so
// the fence is stripped before decoding.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out interface{}) error {
	reply, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	cleaned := stripCodeFence(reply)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("decoding completion reply: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
