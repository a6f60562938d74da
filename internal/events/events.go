package events

import (
	"time"

	"github.com/shipworks/shipping-service/internal/models"
)

// Inbound routing keys consumed from the order service
const (
	RoutingKeyOrderConfirmed = "order.confirmed"
	RoutingKeyOrderCancelled = "order.cancelled"
)

// Outbound routing keys published on shipment state changes
const (
	RoutingKeyShipmentCreated        = "shipment.created"
	RoutingKeyShipmentPickedUp       = "shipment.picked_up"
	RoutingKeyShipmentInTransit      = "shipment.in_transit"
	RoutingKeyShipmentOutForDelivery = "shipment.out_for_delivery"
	RoutingKeyShipmentDelivered      = "shipment.delivered"
	RoutingKeyShipmentCancelled      = "shipment.cancelled"
	RoutingKeyShipmentFailed         = "shipment.failed"
	RoutingKeyShipmentStatusUpdated  = "shipment.status_updated"
)

// InboundRoutingKeys lists the routing keys the consumer queue binds to
func InboundRoutingKeys() []string {
	return []string{RoutingKeyOrderConfirmed, RoutingKeyOrderCancelled}
}

// RoutingKeyForStatus maps a new shipment status to its specific routing key
func RoutingKeyForStatus(status models.ShipmentStatus) string {
	switch status {
	case models.StatusPickedUp:
		return RoutingKeyShipmentPickedUp
	case models.StatusInTransit:
		return RoutingKeyShipmentInTransit
	case models.StatusOutForDelivery:
		return RoutingKeyShipmentOutForDelivery
	case models.StatusDelivered:
		return RoutingKeyShipmentDelivered
	case models.StatusCancelled:
		return RoutingKeyShipmentCancelled
	case models.StatusFailed:
		return RoutingKeyShipmentFailed
	}
	return ""
}

// OrderConfirmed is the payload of an order.confirmed event
type OrderConfirmed struct {
	OrderID         int64  `json:"order_id"`
	ShippingAddress string `json:"shipping_address,omitempty"`
}

// OrderCancelled is the payload of an order.cancelled event
type OrderCancelled struct {
	OrderID int64 `json:"order_id"`
}

// ShipmentCreated is the payload of a shipment.created event
type ShipmentCreated struct {
	ShipmentID string                `json:"shipment_id"`
	OrderID    int64                 `json:"order_id"`
	TrackingNo string                `json:"tracking_no"`
	Carrier    models.Carrier        `json:"carrier"`
	Status     models.ShipmentStatus `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
}

// NewShipmentCreated builds the payload announcing a new shipment
func NewShipmentCreated(s *models.Shipment) *ShipmentCreated {
	return &ShipmentCreated{
		ShipmentID: s.ID,
		OrderID:    s.OrderID,
		TrackingNo: s.TrackingNo,
		Carrier:    s.Carrier,
		Status:     s.Status,
		CreatedAt:  s.CreatedAt,
	}
}

// StatusChanged is the payload published on every accepted status transition,
// both under the status-specific routing key and shipment.status_updated
type StatusChanged struct {
	ShipmentID  string                `json:"shipment_id"`
	OrderID     int64                 `json:"order_id"`
	TrackingNo  string                `json:"tracking_no"`
	Carrier     models.Carrier        `json:"carrier"`
	OldStatus   models.ShipmentStatus `json:"old_status"`
	NewStatus   models.ShipmentStatus `json:"new_status"`
	UpdatedAt   time.Time             `json:"updated_at"`
	DeliveredAt *time.Time            `json:"delivered_at,omitempty"`
	Reason      string                `json:"reason,omitempty"`
}

// NewStatusChanged builds the payload for a status transition. delivered_at
// is only carried on transitions to DELIVERED.
func NewStatusChanged(s *models.Shipment, oldStatus models.ShipmentStatus) *StatusChanged {
	evt := &StatusChanged{
		ShipmentID: s.ID,
		OrderID:    s.OrderID,
		TrackingNo: s.TrackingNo,
		Carrier:    s.Carrier,
		OldStatus:  oldStatus,
		NewStatus:  s.Status,
		UpdatedAt:  s.UpdatedAt,
	}

	if s.Status == models.StatusDelivered {
		evt.DeliveredAt = s.DeliveredAt
	}

	return evt
}
