package models

import (
	"time"
)

// Carrier identifies the delivery company handling a shipment
type Carrier string

const (
	CarrierDHL      Carrier = "DHL"
	CarrierBluedart Carrier = "Bluedart"
	CarrierFedEx    Carrier = "FedEx"
	CarrierDTDC     Carrier = "DTDC"
)

// IsValid reports whether the carrier is a known one
func (c Carrier) IsValid() bool {
	switch c {
	case CarrierDHL, CarrierBluedart, CarrierFedEx, CarrierDTDC:
		return true
	}
	return false
}

// Shipment represents a tracked shipment for one order
type Shipment struct {
	ID                string         `db:"id" json:"id"`
	OrderID           int64          `db:"order_id" json:"order_id"`
	TrackingNo        string         `db:"tracking_no" json:"tracking_no"`
	Carrier           Carrier        `db:"carrier" json:"carrier"`
	Status            ShipmentStatus `db:"status" json:"status"`
	ShippedAt         *time.Time     `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time     `db:"delivered_at" json:"delivered_at,omitempty"`
	EstimatedDelivery *time.Time     `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	ActualWeight      *float64       `db:"actual_weight" json:"actual_weight,omitempty"`
	ShippingAddress   string         `db:"shipping_address" json:"shipping_address,omitempty"`
	Notes             string         `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// NewShipment creates a shipment in its initial PENDING status
func NewShipment(orderID int64, trackingNo string, carrier Carrier, shippingAddress string) *Shipment {
	now := time.Now().UTC()

	return &Shipment{
		ID:              GenerateID("shp"),
		OrderID:         orderID,
		TrackingNo:      trackingNo,
		Carrier:         carrier,
		Status:          StatusPending,
		ShippingAddress: shippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// StampStatusTimes sets shipped_at and delivered_at the first time the
// status warrants them. Once set they are never cleared or overwritten.
func (s *Shipment) StampStatusTimes(now time.Time) {
	if (s.Status == StatusPickedUp || s.Status == StatusInTransit) && s.ShippedAt == nil {
		t := now
		s.ShippedAt = &t
	}

	if s.Status == StatusDelivered && s.DeliveredAt == nil {
		t := now
		s.DeliveredAt = &t
	}
}
