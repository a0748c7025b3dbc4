package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rovesti/fabrica/internal/domain"
)

// MessageType tags the payload shape of a queue message.
type MessageType string

// Message types.
const (
	MessageTypeRunSubmitted MessageType = "run.submitted"
	MessageTypeRunCompleted MessageType = "run.completed"
	MessageTypeRunCancelled MessageType = "run.cancelled"
)

// Message is the envelope of every queue message.
type Message struct {
	// ID is the unique message identifier.
	ID string `json:"id"`

	// Type tags the payload.
	Type MessageType `json:"type"`

	// Payload carries the typed event body.
	Payload any `json:"payload"`

	// Timestamp is the publish time.
	Timestamp time.Time `json:"timestamp"`
}

// RunSubmittedPayload announces a run waiting for execution.
type RunSubmittedPayload struct {
	RunID uuid.UUID `json:"run_id"`
}

// RunCompletedPayload announces a run that reached a terminal status.
type RunCompletedPayload struct {
	RunID     uuid.UUID        `json:"run_id"`
	Status    domain.RunStatus `json:"status"`
	Success   bool             `json:"success"`
	TotalCost float64          `json:"total_cost"`
	Error     string           `json:"error,omitempty"`
}

// RunCancelledPayload requests cancellation of an active run.
type RunCancelledPayload struct {
	RunID uuid.UUID `json:"run_id"`
}

// Publisher publishes run events.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish sends one message to an exchange with a routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishRunSubmitted announces a new run. Consumer: runner.
func (p *Publisher) PublishRunSubmitted(ctx context.Context, runID uuid.UUID) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeySubmitted, newMessage(
		MessageTypeRunSubmitted, RunSubmittedPayload{RunID: runID}))
}

// PublishRunCompleted announces a finished run. Consumers: API
// notifications, audit.
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyCompleted, newMessage(
		MessageTypeRunCompleted, payload))
}

// PublishRunCancelled requests cancellation. Consumer: runner.
func (p *Publisher) PublishRunCancelled(ctx context.Context, runID uuid.UUID) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyCancelled, newMessage(
		MessageTypeRunCancelled, RunCancelledPayload{RunID: runID}))
}

func newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
