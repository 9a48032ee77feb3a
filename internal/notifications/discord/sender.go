// Package discord sends and edits incident messages through a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bissquit/incident-relay/internal/notifications"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "Status Page"
)

// Config holds Discord sender configuration.
type Config struct {
	WebhookURL string
	Username   string        // display name, default "Status Page"
	AvatarURL  string        // optional
	Timeout    time.Duration // request timeout
	RateLimit  float64       // requests per second, zero means unlimited
}

var _ notifications.MessageSender = (*Sender)(nil)

// Sender posts and edits webhook messages.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSender creates a new Discord sender.
func NewSender(config Config) *Sender {
	if config.Username == "" {
		config.Username = defaultUsername
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	return &Sender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Send posts a new message and returns its id.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) (string, error) {
	endpoint, err := s.endpoint("")
	if err != nil {
		return "", err
	}

	payload := webhookPayload{
		Username:  s.config.Username,
		AvatarURL: s.config.AvatarURL,
		Embeds:    []embed{toEmbed(notification)},
	}
	return s.do(ctx, http.MethodPost, endpoint, payload)
}

// Edit replaces the embed of a previously sent message and returns its id.
func (s *Sender) Edit(ctx context.Context, messageID string, notification notifications.Notification) (string, error) {
	if messageID == "" {
		return "", &PermanentError{Message: notifications.ErrEmptyMessageID.Error()}
	}

	endpoint, err := s.endpoint(messageID)
	if err != nil {
		return "", err
	}

	payload := webhookPayload{
		Embeds: []embed{toEmbed(notification)},
	}
	return s.do(ctx, http.MethodPatch, endpoint, payload)
}

// endpoint builds the execute URL, or the message URL when messageID is set.
func (s *Sender) endpoint(messageID string) (string, error) {
	if s.config.WebhookURL == "" {
		return "", &PermanentError{Message: "webhook URL is empty"}
	}

	u, err := url.Parse(s.config.WebhookURL)
	if err != nil {
		return "", &PermanentError{Message: fmt.Sprintf("invalid webhook URL: %v", err)}
	}

	q := u.Query()
	if messageID == "" {
		q.Set("wait", "true")
	} else {
		u.Path = strings.TrimRight(u.Path, "/") + "/messages/" + url.PathEscape(messageID)
		q.Del("wait")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

type webhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type messageResponse struct {
	ID string `json:"id"`
}

type rateLimitResponse struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

func toEmbed(n notifications.Notification) embed {
	e := embed{
		Title:       n.Title,
		Description: n.Description,
		URL:         n.URL,
		Color:       n.Color,
	}
	if !n.Timestamp.IsZero() {
		e.Timestamp = n.Timestamp.UTC().Format(time.RFC3339)
	}
	if n.Footer != "" {
		e.Footer = &embedFooter{Text: n.Footer}
	}
	for _, f := range n.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value})
	}
	return e
}

func (s *Sender) do(ctx context.Context, method, endpoint string, payload webhookPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", &RetryableError{Message: fmt.Sprintf("wait for rate limiter: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp, endpoint)
}

func (s *Sender) handleResponse(resp *http.Response, endpoint string) (string, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var msg messageResponse
		if err := json.Unmarshal(body, &msg); err != nil {
			return "", fmt.Errorf("decode message: %w", err)
		}
		if msg.ID == "" {
			return "", fmt.Errorf("decode message: %w", notifications.ErrEmptyMessageID)
		}
		slog.Debug("discord message delivered", "webhook", maskWebhookURL(endpoint), "message_id", msg.ID)
		return msg.ID, nil

	case resp.StatusCode == http.StatusBadRequest:
		return "", &PermanentError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("bad request: %s", string(body)),
		}

	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", &PermanentError{
			Code:    resp.StatusCode,
			Message: "invalid or expired webhook",
		}

	case resp.StatusCode == http.StatusNotFound:
		return "", &PermanentError{
			Code:    resp.StatusCode,
			Message: "webhook or message not found",
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		message := "rate limited"
		var rl rateLimitResponse
		if json.Unmarshal(body, &rl) == nil && rl.RetryAfter > 0 {
			message = fmt.Sprintf("rate limited, retry after %.2fs", rl.RetryAfter)
		}
		return "", &RetryableError{
			Code:    resp.StatusCode,
			Message: message,
		}

	case resp.StatusCode >= 500:
		return "", &RetryableError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("server error: %s", string(body)),
		}

	default:
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// maskWebhookURL hides the webhook token for logging.
func maskWebhookURL(raw string) string {
	if len(raw) > 40 {
		return raw[:20] + "..." + raw[len(raw)-10:]
	}
	return raw
}

// PermanentError indicates a permanent error that should not be retried.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("discord error: %s", e.Message)
}

// IsRetryable returns false as permanent errors should not be retried.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError indicates a temporary error that can be retried.
type RetryableError struct {
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("discord error: %s", e.Message)
}

// IsRetryable returns true as these errors are temporary.
func (e *RetryableError) IsRetryable() bool { return true }
