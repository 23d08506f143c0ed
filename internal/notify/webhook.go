package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookPublisher POSTs events to an HTTP endpoint as JSON.
type WebhookPublisher struct {
	client *resty.Client
	url    string
}

// NewWebhookPublisher creates a webhook publisher.
func NewWebhookPublisher(url string) *WebhookPublisher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &WebhookPublisher{client: client, url: url}
}

// Publish POSTs one event.
func (p *WebhookPublisher) Publish(ctx context.Context, evt *Event) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(evt).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("failed to POST webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	return nil
}

// Close is a no-op; resty keeps no persistent connections worth tearing
// down explicitly.
func (p *WebhookPublisher) Close() error {
	return nil
}
