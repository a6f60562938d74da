package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/pkg/logger"
)

// Sentinel errors for the broker layer
var (
	ErrConnection = errors.New("broker connection error")
	ErrPublish    = errors.New("broker publish error")
)

const heartbeatInterval = 10 * time.Second

// Publisher publishes domain events to a durable topic exchange. The
// connection is established lazily on first publish and re-established on
// demand after a failure. A Publisher is safe for concurrent use; calls are
// serialized on an internal mutex because an AMQP channel is not.
type Publisher struct {
	cfg    config.RabbitMQConfig
	logger logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher creates a Publisher. No connection is opened until the first
// publish.
func NewPublisher(cfg config.RabbitMQConfig, logger logger.Logger) *Publisher {
	return &Publisher{
		cfg:    cfg,
		logger: logger,
	}
}

// Publish marshals the payload to JSON and publishes it as a persistent
// message under the given routing key. When the broker integration is
// disabled it is a no-op. On any failure the connection is torn down and the
// error is returned; the caller decides whether that is fatal.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	if !p.cfg.Enabled {
		p.logger.Debug("Broker disabled, skipping event", "routingKey", routingKey)
		return nil
	}

	body, err := json.Marshal(payload)

	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrPublish, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannelLocked(); err != nil {
		return err
	}

	err = p.ch.PublishWithContext(
		ctx,
		p.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)

	if err != nil {
		p.teardownLocked()
		p.logger.Error("Failed to publish event", "error", err, "routingKey", routingKey)
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	p.logger.Info("Published event", "routingKey", routingKey)
	return nil
}

// Close closes the broker connection if one is open
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}

// ensureChannelLocked opens the connection and channel if absent or detected
// closed, and declares the topic exchange. Must be called with the mutex
// held.
func (p *Publisher) ensureChannelLocked() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}

	p.teardownLocked()

	conn, err := amqp.DialConfig(p.cfg.URL(), amqp.Config{
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
		p.cfg.Exchange,
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

	p.conn = conn
	p.ch = ch
	p.logger.Info("Connected to RabbitMQ", "host", p.cfg.Host, "exchange", p.cfg.Exchange)
	return nil
}

func (p *Publisher) teardownLocked() {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			p.logger.Error("Error closing broker connection", "error", err)
		}
	}
	p.conn = nil
}
