package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const SubjectNotificationCreated = "notification.created"

// Publisher fans stored notifications out to delivery workers.
type Publisher interface {
	PublishNotificationCreated(event NotificationCreatedEvent) error
}

type NotificationCreatedEvent struct {
	EventType        string    `json:"event_type"`
	NotificationID   string    `json:"notification_id"`
	UserID           string    `json:"user_id"`
	Message          string    `json:"message"`
	NotificationDate time.Time `json:"notification_date"`
}

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NatsPublisher struct {
	conn   natsConn
	logger *slog.Logger
}

func NewNatsPublisher(natsURL string, logger *slog.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("bookings-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NatsPublisher{conn: nc, logger: logger}, nil
}

func (p *NatsPublisher) PublishNotificationCreated(event NotificationCreatedEvent) error {
	event.EventType = SubjectNotificationCreated

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshalling event: %w", err)
	}

	if err := p.conn.Publish(SubjectNotificationCreated, eventJSON); err != nil {
		return fmt.Errorf("error publishing to nats: %w", err)
	}

	p.logger.Debug("published event",
		slog.String("subject", SubjectNotificationCreated),
		slog.String("user_id", event.UserID),
	)
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", slog.String("error", err.Error()))
	}
}

// Noop is used when NATS_URL is not configured.
type Noop struct{}

func (Noop) PublishNotificationCreated(NotificationCreatedEvent) error {
	return nil
}
