package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vaultlane/vault-creator/internal/queue"
	"github.com/vaultlane/vault-creator/internal/types"
)

type Config struct {
	Prefetch      int
	HandleTimeout time.Duration
}

// Consumer reads transaction-status events off the bus and feeds them to the
// Handler. Delivery is at least once; the handler and the record stores are
// idempotent per (item, status), so redelivery is safe.
type Consumer struct {
	config    *Config
	conn      *amqp.Connection
	handler   *Handler
	channel   *amqp.Channel
	log       *slog.Logger
	reconnect bool
}

func NewConsumer(config *Config, conn *amqp.Connection, handler *Handler) *Consumer {
	return &Consumer{
		config:  config,
		conn:    conn,
		handler: handler,
		log:     slog.With("component", "tx-event-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Starting transaction event consumer")

	ch, err := queue.EnsureQueueExists(c.conn, queue.QueueTransactionStatus)
	if err != nil {
		return err
	}
	// we'll open a new channel for the consumer anyway
	ch.Close()

	messages, err := c.restartConsumer()
	if err != nil {
		return err
	}

	for {
		if c.reconnect {
			c.log.Debug("Reconnection is needed")

			messages, err = c.restartConsumer()
			if err != nil {
				return err
			}

			c.reconnect = false
		}

		select {
		case <-ctx.Done():
			c.log.Info("Stopping transaction event consumer...")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("status queue is closed")
			}

			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer) restartConsumer() (<-chan amqp.Delivery, error) {
	if c.channel != nil && !c.channel.IsClosed() {
		c.channel.Close()
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}

	ch.Qos(c.config.Prefetch, 0, false)

	c.channel = ch

	return ch.Consume(
		string(queue.QueueTransactionStatus), // queue
		"tx-event-consumer",                  // consumer
		false,                                // autoAck
		false,                                // exclusive
		false,                                // noLocal
		false,                                // no wait
		nil,                                  // args
	)
}

// handleMessage parses the incoming status event and runs the handler.
// Handler errors requeue the message: the handler only surfaces failures that
// need replay (a record-store write or the continuation signal).
func (c *Consumer) handleMessage(ctx context.Context, message amqp.Delivery) {
	var ackErr error

	defer func() {
		if ackErr != nil {
			// If acking fails, the channel has to be restarted, otherwise
			// unacked messages stay in limbo until they hit the prefetch
			// limit and the consumer stops receiving anything at all.
			c.reconnect = true
		}
	}()

	var event types.TransactionStatusEvent

	if err := json.Unmarshal(message.Body, &event); err != nil {
		c.log.Error(
			"event unmarshalling error",
			"body", string(message.Body),
			"error", err,
		)

		// A malformed event never becomes parseable; drop it.
		ackErr = message.Nack(false, false)
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, c.config.HandleTimeout)
	defer cancel()

	if err := c.handler.HandleTransactionEvent(handleCtx, &event); err != nil {
		c.log.Error(
			"event handling failed, requeueing",
			"item", event.ItemID,
			"status", event.Status,
			"error", err,
		)

		ackErr = message.Nack(false, true)
		return
	}

	ackErr = message.Ack(false)
	if ackErr != nil {
		c.log.Error(
			"Message ack error",
			"message", string(message.Body),
			"error", ackErr,
		)
	}
}
