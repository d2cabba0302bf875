// Package notification turns outbox events into customer notifications.
// Email and WhatsApp delivery belong to the messaging service; this package
// only renders the message and hands it to a Notifier.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"supplyhub/pkg/logger"
)

// Notification is one message addressed to a customer of a store.
type Notification struct {
	Template   string            `json:"template"`
	EventType  string            `json:"event_type"`
	StoreID    string            `json:"store_id"`
	CustomerID string            `json:"customer_id"`
	Data       map[string]string `json:"data"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. Used when no endpoint is configured.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger.Info(ctx, "customer notification",
		"template", n.Template,
		"store_id", n.StoreID,
		"customer_id", n.CustomerID,
		"data", n.Data)
	return nil
}

// WebhookNotifier posts notifications as JSON to the messaging service.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
}

// NewWebhookNotifier creates a notifier posting to endpoint.
func NewWebhookNotifier(endpoint string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Notify implements Notifier. Any non-2xx answer is an error so the relay retries.
func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint answered %d", resp.StatusCode)
	}
	return nil
}
