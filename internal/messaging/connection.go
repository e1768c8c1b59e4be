package messaging

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-system/internal/config"
	"restaurant-system/internal/logger"
)

// Exchange and queue names. Order lifecycle events go to a topic exchange
// keyed by event name; customer notifications fan out to every subscriber.
const (
	EventsExchange        = "order_events"
	NotificationsExchange = "notifications_fanout"

	DashboardQueue     = "dashboard_queue"
	NotificationsQueue = "notifications_queue"
)

// Connection wraps a RabbitMQ connection with retry and reconnect logic.
type Connection struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New establishes the initial RabbitMQ connection and declares topology.
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	c := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("establish initial connection: %w", err)
	}
	return c, nil
}

func (c *Connection) connect() error {
	const maxRetries = 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if setupErr := c.setupTopology(); setupErr != nil {
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxRetries-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", wait),
				"startup", err, nil)
			time.Sleep(wait)
		}
	}

	return fmt.Errorf("connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

func (c *Connection) setupTopology() error {
	if err := c.channel.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare %s exchange: %w", EventsExchange, err)
	}

	if err := c.channel.ExchangeDeclare(
		NotificationsExchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare %s exchange: %w", NotificationsExchange, err)
	}

	if _, err := c.channel.QueueDeclare(
		DashboardQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", DashboardQueue, err)
	}

	// Dashboards see every order lifecycle event.
	if err := c.channel.QueueBind(
		DashboardQueue,
		"order.#",
		EventsExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind queue %s: %w", DashboardQueue, err)
	}

	if _, err := c.channel.QueueDeclare(
		NotificationsQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", NotificationsQueue, err)
	}

	if err := c.channel.QueueBind(
		NotificationsQueue,
		"", // routing key ignored for fanout
		NotificationsExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind queue %s: %w", NotificationsQueue, err)
	}

	return nil
}

// Channel returns the current channel.
func (c *Connection) Channel() *amqp091.Channel {
	return c.channel
}

// Close closes the channel and connection.
func (c *Connection) Close() error {
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed reports whether the underlying connection is gone.
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect drops the current connection and dials again.
func (c *Connection) Reconnect() error {
	c.close()
	return c.connect()
}
