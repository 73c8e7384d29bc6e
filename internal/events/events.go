// Package events publishes RSVP domain events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for RSVP events.
const (
	RKCheckedIn       = "rsvp.checked_in"
	RKPaymentApproved = "rsvp.payment_approved"
	RKPaymentRejected = "rsvp.payment_rejected"
)

// CheckedIn is published once per RSVP, on its first check-in.
type CheckedIn struct {
	RSVPID         string    `json:"rsvp_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	CheckedInAt    time.Time `json:"checked_in_at"`
	FoodTokenGiven bool      `json:"food_token_given"`
	CouponsOwed    int       `json:"coupons_owed"`
	Manual         bool      `json:"manual"`
}

// PaymentReviewed is published when an admin approves or rejects a payment.
type PaymentReviewed struct {
	RSVPID   string `json:"rsvp_id"`
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Publisher sends JSON messages to a topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewPublisher dials RabbitMQ and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON marshals v and publishes it persistently under key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         key,
		Body:         b,
	})
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Noop discards every message. Used when no broker is configured.
type Noop struct{}

// PublishJSON does nothing.
func (Noop) PublishJSON(context.Context, string, any) error { return nil }
