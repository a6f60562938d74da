package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shipworks/shipping-service/internal/events"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/repository"
	apperrors "github.com/shipworks/shipping-service/pkg/errors"
	"github.com/shipworks/shipping-service/pkg/logger"
)

// createAttempts bounds how often a create is retried when the storage
// layer reports a tracking number collision that slipped past the allocator's
// pre-check
const createAttempts = 3

// ShipmentStore is the persistence surface the service depends on
type ShipmentStore interface {
	Create(ctx context.Context, shipment *models.Shipment) error
	GetByID(ctx context.Context, id string) (*models.Shipment, error)
	GetByTrackingNo(ctx context.Context, trackingNo string) (*models.Shipment, error)
	GetByOrderID(ctx context.Context, orderID int64) ([]*models.Shipment, error)
	GetActiveByOrderID(ctx context.Context, orderID int64) ([]*models.Shipment, error)
	Update(ctx context.Context, shipment *models.Shipment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Shipment, error)
	CountsByStatus(ctx context.Context) ([]repository.StatusCount, error)
	CountsByCarrier(ctx context.Context) ([]repository.CarrierCount, error)
	CountAll(ctx context.Context) (int64, error)
}

// HistoryStore is the audit trail surface the service depends on
type HistoryStore interface {
	Create(ctx context.Context, entry *models.ShipmentHistory) error
	GetByShipmentID(ctx context.Context, shipmentID string) ([]*models.ShipmentHistory, error)
}

// TrackingAllocator produces free tracking numbers
type TrackingAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

// EventPublisher publishes outbound domain events
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// ShipmentService orchestrates every mutation of shipment state: it runs
// requested transitions through the status table, persists the result,
// appends the audit trail, and announces the change on the broker.
// Publication happens strictly after the state is committed, and a publish
// failure is never fatal to the mutation.
type ShipmentService struct {
	shipments      ShipmentStore
	history        HistoryStore
	allocator      TrackingAllocator
	publisher      EventPublisher
	defaultCarrier models.Carrier
	logger         logger.Logger
}

// NewShipmentService creates a new ShipmentService instance
func NewShipmentService(
	shipments ShipmentStore,
	history HistoryStore,
	allocator TrackingAllocator,
	publisher EventPublisher,
	defaultCarrier models.Carrier,
	logger logger.Logger,
) *ShipmentService {
	return &ShipmentService{
		shipments:      shipments,
		history:        history,
		allocator:      allocator,
		publisher:      publisher,
		defaultCarrier: defaultCarrier,
		logger:         logger,
	}
}

// CreateFromOrder creates a PENDING shipment for a confirmed order. If the
// order already has a shipment in an active status the existing one is
// returned with created=false and nothing else happens; this makes the
// operation safe under at-least-once delivery of order.confirmed.
func (s *ShipmentService) CreateFromOrder(ctx context.Context, orderID int64, shippingAddress string) (*models.Shipment, bool, error) {
	if orderID <= 0 {
		return nil, false, apperrors.NewInvalidInputError("order_id must be positive")
	}

	active, err := s.shipments.GetActiveByOrderID(ctx, orderID)

	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing shipments: %w", err)
	}

	if len(active) > 0 {
		s.logger.Info("Shipment already exists for order", "orderID", orderID, "shipmentID", active[0].ID)
		return active[0], false, nil
	}

	shipment, err := s.createShipment(ctx, orderID, s.defaultCarrier, shippingAddress, nil, nil, "")

	if err != nil {
		return nil, false, err
	}

	s.logger.Info("Created shipment for order",
		"shipmentID", shipment.ID,
		"orderID", orderID,
		"trackingNo", shipment.TrackingNo)

	s.publish(ctx, events.RoutingKeyShipmentCreated, events.NewShipmentCreated(shipment))

	return shipment, true, nil
}

// CreateShipmentInput is the request to create a shipment directly
type CreateShipmentInput struct {
	OrderID           int64
	Carrier           models.Carrier
	ShippingAddress   string
	EstimatedDelivery *time.Time
	ActualWeight      *float64
	Notes             string
}

// CreateShipment creates a shipment from a direct API request. Unlike
// CreateFromOrder it always creates; the caller chose to ship again.
func (s *ShipmentService) CreateShipment(ctx context.Context, in CreateShipmentInput) (*models.Shipment, error) {
	if in.OrderID <= 0 {
		return nil, apperrors.NewInvalidInputError("order_id must be positive")
	}

	carrier := in.Carrier
	if carrier == "" {
		carrier = s.defaultCarrier
	}
	if !carrier.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown carrier %q", carrier))
	}

	shipment, err := s.createShipment(ctx, in.OrderID, carrier, in.ShippingAddress, in.EstimatedDelivery, in.ActualWeight, in.Notes)

	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.RoutingKeyShipmentCreated, events.NewShipmentCreated(shipment))

	return shipment, nil
}

// createShipment allocates a tracking number and persists a new shipment,
// re-allocating when a concurrent creation won the same number
func (s *ShipmentService) createShipment(
	ctx context.Context,
	orderID int64,
	carrier models.Carrier,
	shippingAddress string,
	estimatedDelivery *time.Time,
	actualWeight *float64,
	notes string,
) (*models.Shipment, error) {
	for attempt := 1; attempt <= createAttempts; attempt++ {
		trackingNo, err := s.allocator.Allocate(ctx)

		if err != nil {
			return nil, fmt.Errorf("failed to allocate tracking number: %w", err)
		}

		shipment := models.NewShipment(orderID, trackingNo, carrier, shippingAddress)
		shipment.EstimatedDelivery = estimatedDelivery
		shipment.ActualWeight = actualWeight
		shipment.Notes = notes

		err = s.shipments.Create(ctx, shipment)

		if err == nil {
			return shipment, nil
		}

		if errors.Is(err, repository.ErrDuplicateTracking) {
			s.logger.Warn("Tracking number taken by concurrent insert, re-allocating",
				"trackingNo", trackingNo,
				"attempt", attempt)
			continue
		}

		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	return nil, fmt.Errorf("failed to save shipment: %w", repository.ErrDuplicateTracking)
}

// CancelForOrder cancels every active shipment of an order. Each
// cancellation goes through the transition table like any other status
// change. Shipments already in a terminal status are untouched, so replaying
// an order.cancelled event is harmless.
func (s *ShipmentService) CancelForOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	if orderID <= 0 {
		return nil, apperrors.NewInvalidInputError("order_id must be positive")
	}

	active, err := s.shipments.GetActiveByOrderID(ctx, orderID)

	if err != nil {
		return nil, fmt.Errorf("failed to load shipments for order: %w", err)
	}

	cancelled := make([]*models.Shipment, 0, len(active))

	for _, shipment := range active {
		oldStatus := shipment.Status

		if err := models.ValidateTransition(oldStatus, models.StatusCancelled); err != nil {
			s.logger.Warn("Skipping shipment that cannot be cancelled",
				"shipmentID", shipment.ID,
				"status", oldStatus)
			continue
		}

		shipment.Status = models.StatusCancelled
		shipment.UpdatedAt = time.Now().UTC()

		if err := s.shipments.Update(ctx, shipment); err != nil {
			return cancelled, fmt.Errorf("failed to cancel shipment %s: %w", shipment.ID, err)
		}

		s.recordHistory(ctx, shipment, "", "Shipment cancelled because the order was cancelled")

		evt := events.NewStatusChanged(shipment, oldStatus)
		evt.Reason = "order_cancelled"
		s.publish(ctx, events.RoutingKeyShipmentCancelled, evt)
		s.publish(ctx, events.RoutingKeyShipmentStatusUpdated, evt)

		s.logger.Info("Cancelled shipment", "shipmentID", shipment.ID, "orderID", orderID)
		cancelled = append(cancelled, shipment)
	}

	return cancelled, nil
}

// UpdateStatusInput is the request to move a shipment to a new status
type UpdateStatusInput struct {
	Status       models.ShipmentStatus
	Location     string
	Description  string
	Notes        *string
	ActualWeight *float64
}

// UpdateStatus applies a status transition to a shipment. The transition is
// validated against the status table; a request equal to the current status
// is a no-op that writes no history and publishes nothing. On an accepted
// transition the order of effects is: persist, append history, publish.
func (s *ShipmentService) UpdateStatus(ctx context.Context, id string, in UpdateStatusInput) (*models.Shipment, error) {
	shipment, err := s.shipments.GetByID(ctx, id)

	if err != nil {
		return nil, err
	}

	if !in.Status.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown status %q", in.Status))
	}

	oldStatus := shipment.Status

	if err := models.ValidateTransition(oldStatus, in.Status); err != nil {
		return nil, err
	}

	if in.Notes != nil {
		shipment.Notes = *in.Notes
	}
	if in.ActualWeight != nil {
		shipment.ActualWeight = in.ActualWeight
	}

	if in.Status == oldStatus {
		// Idempotent re-submission: persist auxiliary fields only, no
		// history entry, no events
		if err := s.shipments.Update(ctx, shipment); err != nil {
			return nil, fmt.Errorf("failed to update shipment: %w", err)
		}
		return shipment, nil
	}

	now := time.Now().UTC()
	shipment.Status = in.Status
	shipment.UpdatedAt = now
	shipment.StampStatusTimes(now)

	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to update shipment: %w", err)
	}

	s.recordHistory(ctx, shipment, in.Location, in.Description)

	evt := events.NewStatusChanged(shipment, oldStatus)
	if key := events.RoutingKeyForStatus(shipment.Status); key != "" {
		s.publish(ctx, key, evt)
	}
	s.publish(ctx, events.RoutingKeyShipmentStatusUpdated, evt)

	s.logger.Info("Shipment status updated",
		"shipmentID", shipment.ID,
		"oldStatus", oldStatus,
		"newStatus", shipment.Status)

	return shipment, nil
}

// GetShipment retrieves a shipment by ID
func (s *ShipmentService) GetShipment(ctx context.Context, id string) (*models.Shipment, error) {
	return s.shipments.GetByID(ctx, id)
}

// GetByTrackingNo retrieves a shipment by tracking number
func (s *ShipmentService) GetByTrackingNo(ctx context.Context, trackingNo string) (*models.Shipment, error) {
	return s.shipments.GetByTrackingNo(ctx, trackingNo)
}

// GetShipmentsForOrder retrieves all shipments of an order
func (s *ShipmentService) GetShipmentsForOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	if orderID <= 0 {
		return nil, apperrors.NewInvalidInputError("order_id must be positive")
	}
	return s.shipments.GetByOrderID(ctx, orderID)
}

// ListShipments retrieves shipments, newest first
func (s *ShipmentService) ListShipments(ctx context.Context, limit, offset int) ([]*models.Shipment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.shipments.List(ctx, limit, offset)
}

// GetHistory retrieves the audit trail of a shipment
func (s *ShipmentService) GetHistory(ctx context.Context, shipmentID string) ([]*models.ShipmentHistory, error) {
	if _, err := s.shipments.GetByID(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.history.GetByShipmentID(ctx, shipmentID)
}

// DeleteShipment removes a shipment and, through the schema, its history
func (s *ShipmentService) DeleteShipment(ctx context.Context, id string) error {
	return s.shipments.Delete(ctx, id)
}

// Statistics aggregates shipment counts for reporting
type Statistics struct {
	StatusDistribution  []repository.StatusCount  `json:"status_distribution"`
	CarrierDistribution []repository.CarrierCount `json:"carrier_distribution"`
	TotalShipments      int64                     `json:"total_shipments"`
}

// GetStatistics returns shipment counts grouped by status and carrier
func (s *ShipmentService) GetStatistics(ctx context.Context) (*Statistics, error) {
	byStatus, err := s.shipments.CountsByStatus(ctx)

	if err != nil {
		return nil, err
	}

	byCarrier, err := s.shipments.CountsByCarrier(ctx)

	if err != nil {
		return nil, err
	}

	total, err := s.shipments.CountAll(ctx)

	if err != nil {
		return nil, err
	}

	return &Statistics{
		StatusDistribution:  byStatus,
		CarrierDistribution: byCarrier,
		TotalShipments:      total,
	}, nil
}

// recordHistory appends an audit entry; a failure here is logged but does not
// undo the already committed status change
func (s *ShipmentService) recordHistory(ctx context.Context, shipment *models.Shipment, location, description string) {
	entry := models.NewShipmentHistory(shipment.ID, shipment.Status, location, description)

	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record shipment history",
			"error", err,
			"shipmentID", shipment.ID,
			"status", shipment.Status)
	}
}

// publish sends one outbound event; failures are logged and swallowed
// because the state change they announce is already committed
func (s *ShipmentService) publish(ctx context.Context, routingKey string, payload interface{}) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Error("Failed to publish event",
			"error", err,
			"routingKey", routingKey)
	}
}
