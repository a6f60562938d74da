package models

import "fmt"

// ShipmentStatus represents the delivery state of a shipment
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "PENDING"
	StatusPickedUp       ShipmentStatus = "PICKED_UP"
	StatusInTransit      ShipmentStatus = "IN_TRANSIT"
	StatusOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      ShipmentStatus = "DELIVERED"
	StatusCancelled      ShipmentStatus = "CANCELLED"
	StatusFailed         ShipmentStatus = "FAILED"
)

// statusTransitions is the full transition table. Statuses missing a target
// list are terminal.
var statusTransitions = map[ShipmentStatus][]ShipmentStatus{
	StatusPending:        {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusInTransit, StatusCancelled},
	StatusInTransit:      {StatusOutForDelivery, StatusFailed},
	StatusOutForDelivery: {StatusDelivered, StatusFailed},
	StatusFailed:         {StatusInTransit},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// AllStatuses lists every known shipment status
func AllStatuses() []ShipmentStatus {
	return []ShipmentStatus{
		StatusPending,
		StatusPickedUp,
		StatusInTransit,
		StatusOutForDelivery,
		StatusDelivered,
		StatusCancelled,
		StatusFailed,
	}
}

// IsValid reports whether the status is a known one
func (s ShipmentStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether the status has no outgoing transitions
func (s ShipmentStatus) IsTerminal() bool {
	targets, ok := statusTransitions[s]
	return ok && len(targets) == 0
}

// CanTransitionTo reports whether the transition table allows moving to the
// given status
func (s ShipmentStatus) CanTransitionTo(to ShipmentStatus) bool {
	for _, target := range statusTransitions[s] {
		if target == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned when a requested status change is not
// allowed by the transition table
type InvalidTransitionError struct {
	From ShipmentStatus
	To   ShipmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ValidateTransition checks a requested status change against the transition
// table. A request equal to the current status is accepted as a no-op; any
// other pair not in the table fails with *InvalidTransitionError.
func ValidateTransition(from, to ShipmentStatus) error {
	if to == from {
		return nil
	}

	if !from.CanTransitionTo(to) {
		return &InvalidTransitionError{From: from, To: to}
	}

	return nil
}

// ActiveStatuses are the statuses an order cancellation still applies to.
// They double as the idempotency boundary for shipment creation: while a
// shipment for the order is in one of these, no second one is created.
func ActiveStatuses() []ShipmentStatus {
	return []ShipmentStatus{StatusPending, StatusPickedUp, StatusInTransit}
}
