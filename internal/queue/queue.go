package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

type QueueName string

const (
	// QueueExecuteTransaction carries TransactionIntents to the external
	// chain-signing executor.
	QueueExecuteTransaction QueueName = "vault.tx.execute"
	// QueueTransactionStatus carries the executor's status events back.
	QueueTransactionStatus QueueName = "vault.tx.status"
	// QueueNotifications carries role-invitation and owner-summary triggers.
	QueueNotifications QueueName = "vault.notifications"
	// QueueMonitoring carries start-monitoring signals for created vaults.
	QueueMonitoring QueueName = "vault.monitoring"
)

// ErrPublishNotConfirmed is returned when the broker nacked the publish or
// the confirmation never arrived. The message may or may not have been
// enqueued; callers must not blindly retry with the same payload.
var ErrPublishNotConfirmed = errors.New("publish not confirmed by broker")

// Publisher publishes messages to a single queue in confirm mode, so a
// partially failed publish is observable instead of silent.
type Publisher struct {
	queueName QueueName
	conn      *amqp.Connection
	log       *slog.Logger
}

func NewPublisher(conn *amqp.Connection, queueName QueueName) *Publisher {
	return &Publisher{
		queueName: queueName,
		conn:      conn,
		log:       slog.With("component", "publisher", "queue", queueName),
	}
}

func (p *Publisher) Publish(ctx context.Context, message []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("couldn't open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("couldn't enable confirm mode: %w", err)
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"",                  // exchange - empty means default (direct to queue)
		string(p.queueName), // routing key = queue name
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
		},
	)
	if err != nil {
		p.log.Error("Failed to publish", "error", err)
		return fmt.Errorf("%w: %w", ErrPublishNotConfirmed, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishNotConfirmed, err)
	}
	if !acked {
		return ErrPublishNotConfirmed
	}

	return nil
}

// EnsureQueueExists declares the queue so consumers and publishers can start
// in any order.
func EnsureQueueExists(conn *amqp.Connection, queueName QueueName) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		string(queueName), // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return ch, nil
}
