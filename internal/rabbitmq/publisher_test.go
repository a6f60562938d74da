package rabbitmq

import (
	"context"
	"testing"

	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestDisabledPublisherIsNoOp(t *testing.T) {
	// Intentionally unreachable broker: a disabled publisher must never dial
	cfg := config.RabbitMQConfig{
		Host:     "broker.invalid",
		Port:     1,
		Enabled:  false,
		Exchange: "shipping_events",
	}

	p := NewPublisher(cfg, logger.NewLogger("error"))
	defer p.Close()

	err := p.Publish(context.Background(), "shipment.created", map[string]interface{}{"shipment_id": "shp-1"})

	require.NoError(t, err)
	require.Nil(t, p.conn, "no connection is opened while disabled")
}

func TestEnabledPublisherSurfacesConnectionError(t *testing.T) {
	cfg := config.RabbitMQConfig{
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		VHost:    "/",
		User:     "guest",
		Password: "guest",
		Enabled:  true,
		Exchange: "shipping_events",
	}

	p := NewPublisher(cfg, logger.NewLogger("error"))
	defer p.Close()

	err := p.Publish(context.Background(), "shipment.created", map[string]interface{}{})

	require.Error(t, err)
	require.ErrorIs(t, err, ErrConnection)
}

func TestPublisherRejectsUnmarshalablePayload(t *testing.T) {
	cfg := config.RabbitMQConfig{Enabled: true}

	p := NewPublisher(cfg, logger.NewLogger("error"))
	defer p.Close()

	err := p.Publish(context.Background(), "shipment.created", make(chan int))

	require.Error(t, err)
	require.ErrorIs(t, err, ErrPublish)
}
