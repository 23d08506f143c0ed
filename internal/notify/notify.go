package notify

import (
	"context"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// Event is the payload fanned out for each newly recorded message.
type Event struct {
	SessionID  string `json:"session_id"`
	ChatID     string `json:"chat_id"`
	MessageID  string `json:"message_id"`
	From       string `json:"from"`
	SenderName string `json:"sender_name,omitempty"`
	Body       string `json:"body,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	FromMe     bool   `json:"from_me"`
	IsGroup    bool   `json:"is_group"`
	MediaType  string `json:"media_type,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	Source     string `json:"source"`
}

// Event sources.
const (
	SourceLive    = "live"
	SourceHistory = "history"
)

// Publisher delivers recorded-message events to one backend.
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
	Close() error
}

// Fanout publishes to every configured backend. Delivery is best-effort:
// a failing backend is logged and never blocks recording.
type Fanout struct {
	targets []Publisher
	log     waLog.Logger
}

// NewFanout creates a fan-out over the given publishers.
func NewFanout(log waLog.Logger, targets ...Publisher) *Fanout {
	return &Fanout{targets: targets, log: log.Sub("Notify")}
}

// Publish delivers the event to all backends.
func (f *Fanout) Publish(ctx context.Context, evt *Event) {
	for _, t := range f.targets {
		if err := t.Publish(ctx, evt); err != nil {
			f.log.Warnf("Failed to publish message %s: %v", evt.MessageID, err)
		}
	}
}

// Close shuts down all backends.
func (f *Fanout) Close() {
	for _, t := range f.targets {
		if err := t.Close(); err != nil {
			f.log.Warnf("Failed to close publisher: %v", err)
		}
	}
}
