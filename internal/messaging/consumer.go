package messaging

import (
	"context"
	"fmt"

	"restaurant-system/internal/logger"
)

// MessageHandler processes a single delivery body. A non-nil error nacks
// and requeues the message.
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer handles message consumption from RabbitMQ.
type Consumer struct {
	conn        *Connection
	logger      *logger.Logger
	queueName   string
	consumerTag string
	prefetch    int
}

// NewConsumer creates a consumer for the given queue.
func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:        conn,
		logger:      log,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
	}
}

// StartConsuming consumes messages until ctx is cancelled.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	if c.conn.IsClosed() {
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	if err := c.conn.Channel().Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	msgs, err := c.conn.Channel().Consume(
		c.queueName,
		c.consumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from queue %s", c.queueName),
		"", map[string]interface{}{
			"queue":    c.queueName,
			"consumer": c.consumerTag,
			"prefetch": c.prefetch,
		})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			if err := handler(ctx, msg.Body); err != nil {
				c.logger.Error("message_handling_failed",
					fmt.Sprintf("Failed to handle message from queue %s", c.queueName),
					"", err, map[string]interface{}{"queue": c.queueName})
				if nackErr := msg.Nack(false, true); nackErr != nil {
					c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, nil)
				}
				continue
			}

			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("message_ack_failed", "Failed to ack message", "", ackErr, nil)
			}
		}
	}
}
