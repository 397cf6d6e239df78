// Package webhook delivers notifications by POSTing them as JSON to a
// configured endpoint, the shape most chat integrations accept.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lei/build-notify/internal/delivery"
	"github.com/lei/build-notify/pkg/logger"
)

// Config holds webhook channel settings
type Config struct {
	// Name identifies this channel in logs and error reports; defaults
	// to "webhook"
	Name string

	// URL is the endpoint notifications are POSTed to
	URL string

	// BearerToken, when set, is sent in the Authorization header
	BearerToken string

	// Timeout bounds each delivery attempt; defaults to 30s
	Timeout time.Duration
}

// Notifier POSTs notifications to a webhook endpoint
type Notifier struct {
	name       string
	url        string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a webhook notifier
func New(cfg Config, log *logger.Logger) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}

	name := cfg.Name
	if name == "" {
		name = "webhook"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Notifier{
		name:       name,
		url:        cfg.URL,
		token:      cfg.BearerToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}, nil
}

// Name implements delivery.Notifier
func (n *Notifier) Name() string {
	return n.name
}

// Send implements delivery.Notifier
func (n *Notifier) Send(ctx context.Context, notification *delivery.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	n.logger.Debug("delivery: posting notification",
		"channel", n.name,
		"notification_id", notification.ID,
		"event", notification.Event)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("delivery: http request failed",
			"channel", n.name,
			"notification_id", notification.ID,
			"error", err)
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	n.logger.Debug("delivery: http response",
		"channel", n.name,
		"notification_id", notification.ID,
		"status", resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return n.parseError(resp)
}

func (n *Notifier) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", delivery.ErrUnauthorized, n.name)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", delivery.ErrChannelUnavailable, n.name)
	default:
		var errResp struct {
			Error string `json:"error"`
		}

		message := string(body)
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}

		return &delivery.DeliveryError{
			Channel: n.name,
			Code:    resp.StatusCode,
			Message: message,
		}
	}
}
