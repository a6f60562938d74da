package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/pkg/logger"
	"github.com/shipworks/shipping-service/pkg/retry"
)

// Decision is the outcome of routing one inbound message
type Decision int

const (
	// Ack acknowledges the message and removes it from the queue
	Ack Decision = iota
	// NackRequeue rejects the message and asks the broker to redeliver it
	NackRequeue
)

// Handler routes one inbound delivery and decides its acknowledgement
type Handler interface {
	Route(ctx context.Context, routingKey string, body []byte) Decision
}

// Consumer pulls messages from a durable queue bound to the topic exchange,
// one at a time (prefetch 1), and dispatches each to a Handler
type Consumer struct {
	cfg         config.RabbitMQConfig
	queue       string
	routingKeys []string
	backoff     retry.BackoffStrategy
	logger      logger.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer creates a Consumer for the given queue and routing keys
func NewConsumer(cfg config.RabbitMQConfig, queue string, routingKeys []string, logger logger.Logger) *Consumer {
	return &Consumer{
		cfg:         cfg,
		queue:       queue,
		routingKeys: routingKeys,
		backoff:     retry.NewDefaultExponentialBackoff(),
		logger:      logger,
	}
}

// Run consumes messages until the context is cancelled, reconnecting with
// backoff when the broker connection drops. The in-flight message is always
// acked or nacked before shutdown completes.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	defer c.close()

	attempt := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := c.connect(); err != nil {
			attempt++
			wait := c.backoff.NextBackoff(attempt)
			c.logger.Warn("Failed to connect to RabbitMQ, retrying",
				"error", err,
				"attempt", attempt,
				"backoff", wait)

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		attempt = 0
		c.logger.Info("Consuming from queue", "queue", c.queue, "routingKeys", c.routingKeys)

		err := c.consume(ctx, handler)

		if ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("Consumer connection lost, reconnecting", "error", err)
		c.close()
	}
}

// connect dials the broker and declares the consuming topology: the topic
// exchange, the durable queue, its bindings, and a prefetch of one
func (c *Consumer) connect() error {
	conn, err := amqp.DialConfig(c.cfg.URL(), amqp.Config{
		Heartbeat: heartbeatInterval,
	})

	if err != nil {
		return fmt.Errorf("%w: dial: %v", ErrConnection, err)
	}

	ch, err := conn.Channel()

	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: open channel: %v", ErrConnection, err)
	}

	if err := ch.ExchangeDeclare(
		c.cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("%w: declare exchange: %v", ErrConnection, err)
	}

	if _, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("%w: declare queue: %v", ErrConnection, err)
	}

	for _, key := range c.routingKeys {
		if err := ch.QueueBind(c.queue, key, c.cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("%w: bind queue to %s: %v", ErrConnection, key, err)
		}
	}

	// One unacked message at a time bounds in-flight work and keeps per-queue
	// ordering simple
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("%w: set qos: %v", ErrConnection, err)
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)

	if err != nil {
		return fmt.Errorf("%w: start consuming: %v", ErrConnection, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: delivery channel closed", ErrConnection)
			}

			c.logger.Debug("Received message", "routingKey", d.RoutingKey)

			switch handler.Route(ctx, d.RoutingKey, d.Body) {
			case NackRequeue:
				if err := d.Nack(false, true); err != nil {
					c.logger.Error("Failed to nack message", "error", err, "routingKey", d.RoutingKey)
				}
			default:
				if err := d.Ack(false); err != nil {
					c.logger.Error("Failed to ack message", "error", err, "routingKey", d.RoutingKey)
				}
			}
		}
	}
}

func (c *Consumer) close() {
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Error closing consumer connection", "error", err)
		}
	}
	c.conn = nil
}
