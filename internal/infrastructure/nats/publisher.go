// Package nats publishes realtime inbox events so connected clients can refresh without polling.
package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-community-notifier/internal/domain"
	"github.com/nats-io/nats.go"
)

// Publisher sends one message per stored notification on <prefix>.<user id>.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

func NewPublisher(url, prefix string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("community-notifier"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "err", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the per-user subject a client subscribes to.
func Subject(prefix, userID string) string {
	return prefix + "." + userID
}

type inboxEvent struct {
	NotificationID string          `json:"notification_id"`
	Category       domain.Category `json:"category"`
	Type           string          `json:"type"`
	SourceID       string          `json:"source_id,omitempty"`
	Link           string          `json:"link"`
	CreatedAt      time.Time       `json:"created_at"`
}

func encodeEvent(n *domain.Notification) ([]byte, error) {
	return json.Marshal(inboxEvent{
		NotificationID: n.NotificationID,
		Category:       n.Category,
		Type:           n.Payload.Type,
		SourceID:       n.Payload.SourceID,
		Link:           n.Payload.DeepLink(),
		CreatedAt:      n.CreatedAt,
	})
}

// Publish is fire-and-forget; the stored record is the source of truth.
func (p *Publisher) Publish(n *domain.Notification) error {
	data, err := encodeEvent(n)
	if err != nil {
		return fmt.Errorf("encode inbox event: %w", err)
	}
	if err := p.conn.Publish(Subject(p.prefix, n.UserID), data); err != nil {
		return fmt.Errorf("publish inbox event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
