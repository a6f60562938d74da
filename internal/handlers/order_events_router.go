package handlers

import (
	"context"
	"encoding/json"

	"github.com/shipworks/shipping-service/internal/events"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/rabbitmq"
	"github.com/shipworks/shipping-service/pkg/logger"
)

// EventKind is the closed set of inbound event types the router understands
type EventKind int

const (
	EventUnknown EventKind = iota
	EventOrderConfirmed
	EventOrderCancelled
)

// KindForRoutingKey maps an inbound routing key to its event kind
func KindForRoutingKey(routingKey string) EventKind {
	switch routingKey {
	case events.RoutingKeyOrderConfirmed:
		return EventOrderConfirmed
	case events.RoutingKeyOrderCancelled:
		return EventOrderCancelled
	}
	return EventUnknown
}

// LifecycleService is the slice of the shipment service the router drives
type LifecycleService interface {
	CreateFromOrder(ctx context.Context, orderID int64, shippingAddress string) (*models.Shipment, bool, error)
	CancelForOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error)
}

// OrderEventsRouter dispatches inbound order events to the shipment
// lifecycle service and decides acknowledgement per message. Handlers are
// retryable: a redelivered message hits the service's idempotency checks and
// becomes a no-op.
type OrderEventsRouter struct {
	lifecycle LifecycleService
	logger    logger.Logger
}

// NewOrderEventsRouter creates a router over the given lifecycle service
func NewOrderEventsRouter(lifecycle LifecycleService, logger logger.Logger) *OrderEventsRouter {
	return &OrderEventsRouter{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Route dispatches one inbound message. Unknown routing keys are
// acknowledged so they never block the queue; malformed payloads and handler
// failures are rejected with requeue so the broker redelivers them.
func (r *OrderEventsRouter) Route(ctx context.Context, routingKey string, body []byte) rabbitmq.Decision {
	switch KindForRoutingKey(routingKey) {
	case EventOrderConfirmed:
		return r.handleOrderConfirmed(ctx, body)
	case EventOrderCancelled:
		return r.handleOrderCancelled(ctx, body)
	default:
		r.logger.Warn("No handler for routing key, acknowledging", "routingKey", routingKey)
		return rabbitmq.Ack
	}
}

func (r *OrderEventsRouter) handleOrderConfirmed(ctx context.Context, body []byte) rabbitmq.Decision {
	var evt events.OrderConfirmed

	if err := json.Unmarshal(body, &evt); err != nil {
		r.logger.Error("Malformed order.confirmed payload", "error", err)
		return rabbitmq.NackRequeue
	}

	if evt.OrderID <= 0 {
		r.logger.Error("order.confirmed without a valid order_id", "orderID", evt.OrderID)
		return rabbitmq.NackRequeue
	}

	shipment, created, err := r.lifecycle.CreateFromOrder(ctx, evt.OrderID, evt.ShippingAddress)

	if err != nil {
		r.logger.Error("Failed to create shipment for order", "error", err, "orderID", evt.OrderID)
		return rabbitmq.NackRequeue
	}

	if created {
		r.logger.Info("Shipment created from order event",
			"orderID", evt.OrderID,
			"shipmentID", shipment.ID,
			"trackingNo", shipment.TrackingNo)
	} else {
		r.logger.Info("Duplicate order.confirmed, shipment already exists",
			"orderID", evt.OrderID,
			"shipmentID", shipment.ID)
	}

	return rabbitmq.Ack
}

func (r *OrderEventsRouter) handleOrderCancelled(ctx context.Context, body []byte) rabbitmq.Decision {
	var evt events.OrderCancelled

	if err := json.Unmarshal(body, &evt); err != nil {
		r.logger.Error("Malformed order.cancelled payload", "error", err)
		return rabbitmq.NackRequeue
	}

	if evt.OrderID <= 0 {
		r.logger.Error("order.cancelled without a valid order_id", "orderID", evt.OrderID)
		return rabbitmq.NackRequeue
	}

	cancelled, err := r.lifecycle.CancelForOrder(ctx, evt.OrderID)

	if err != nil {
		r.logger.Error("Failed to cancel shipments for order", "error", err, "orderID", evt.OrderID)
		return rabbitmq.NackRequeue
	}

	r.logger.Info("Processed order.cancelled",
		"orderID", evt.OrderID,
		"cancelledShipments", len(cancelled))

	return rabbitmq.Ack
}
