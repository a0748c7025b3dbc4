package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange names an AMQP exchange.
type Exchange string

// Queue names an AMQP queue.
type Queue string

// RoutingKey names an AMQP routing key.
type RoutingKey string

// Exchanges.
const (
	ExchangeRuns Exchange = "fabrica.runs"
	ExchangeDLQ  Exchange = "fabrica.dlq"
)

// Queues.
const (
	QueueRunsSubmitted Queue = "runs.submitted"
	QueueRunsCompleted Queue = "runs.completed"
	QueueRunsCancelled Queue = "runs.cancelled"
	QueueDLQRuns       Queue = "dlq.runs"
)

// Routing keys.
const (
	RoutingKeySubmitted RoutingKey = "submitted"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyCancelled RoutingKey = "cancelled"
	RoutingKeyDLQRuns   RoutingKey = "runs"
)

// SetupTopology declares all exchanges, queues and bindings. Safe to
// call repeatedly: declarations are idempotent.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, name := range []Exchange{ExchangeRuns, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(name), "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", name, err)
			}
		}

		// runs.submitted dead-letters into the DLQ after redelivery
		// gives up; completion and cancellation events do not.
		dlqArgs := amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
		}

		queues := []struct {
			name Queue
			args amqp.Table
		}{
			{QueueRunsSubmitted, dlqArgs},
			{QueueRunsCompleted, nil},
			{QueueRunsCancelled, nil},
			{QueueDLQRuns, nil},
		}
		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
			exchange   Exchange
		}{
			{QueueRunsSubmitted, RoutingKeySubmitted, ExchangeRuns},
			{QueueRunsCompleted, RoutingKeyCompleted, ExchangeRuns},
			{QueueRunsCancelled, RoutingKeyCancelled, ExchangeRuns},
			{QueueDLQRuns, RoutingKeyDLQRuns, ExchangeDLQ},
		}
		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
