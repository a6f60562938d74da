package models

import (
	"fmt"
	"time"
)

// ShipmentHistory is one entry of a shipment's append-only audit trail.
// Entries are created exactly once per accepted status transition and are
// never updated or deleted.
type ShipmentHistory struct {
	ID          string         `db:"id" json:"id"`
	ShipmentID  string         `db:"shipment_id" json:"shipment_id"`
	Status      ShipmentStatus `db:"status" json:"status"`
	Location    string         `db:"location" json:"location,omitempty"`
	Description string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// NewShipmentHistory creates a history entry for a status transition. An
// empty description defaults to a generic status-change note.
func NewShipmentHistory(shipmentID string, status ShipmentStatus, location, description string) *ShipmentHistory {
	if description == "" {
		description = fmt.Sprintf("Status updated to %s", status)
	}

	return &ShipmentHistory{
		ID:          GenerateID("shh"),
		ShipmentID:  shipmentID,
		Status:      status,
		Location:    location,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}
