package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shipworks/shipping-service/internal/database"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/pkg/logger"
)

// Sentinel errors for the repository layer
var (
	ErrNotFound          = errors.New("record not found")
	ErrDatabase          = errors.New("database error")
	ErrDuplicateTracking = errors.New("duplicate tracking number")
)

const pqUniqueViolation = "23505"

// ShipmentRepository provides access to persisted shipments
type ShipmentRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewShipmentRepository creates a new ShipmentRepository instance
func NewShipmentRepository(db *database.Database, logger logger.Logger) *ShipmentRepository {
	return &ShipmentRepository{
		db:     db,
		logger: logger,
	}
}

const shipmentColumns = `id, order_id, tracking_no, carrier, status, shipped_at, delivered_at,
		estimated_delivery, actual_weight, shipping_address, notes, created_at, updated_at`

// Create inserts a new shipment. A tracking number collision surfaces as
// ErrDuplicateTracking so the caller can re-allocate and retry.
func (r *ShipmentRepository) Create(ctx context.Context, shipment *models.Shipment) error {
	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		shipment.ID,
		shipment.OrderID,
		shipment.TrackingNo,
		shipment.Carrier,
		shipment.Status,
		shipment.ShippedAt,
		shipment.DeliveredAt,
		shipment.EstimatedDelivery,
		shipment.ActualWeight,
		shipment.ShippingAddress,
		shipment.Notes,
		shipment.CreatedAt,
		shipment.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateTracking, shipment.TrackingNo)
		}
		r.logger.Error("Failed to create shipment", "error", err, "shipmentID", shipment.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a shipment by its ID
func (r *ShipmentRepository) GetByID(ctx context.Context, id string) (*models.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`

	var shipment models.Shipment
	err := r.db.DB.GetContext(ctx, &shipment, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get shipment", "error", err, "shipmentID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &shipment, nil
}

// GetByTrackingNo retrieves a shipment by its tracking number
func (r *ShipmentRepository) GetByTrackingNo(ctx context.Context, trackingNo string) (*models.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE tracking_no = $1`

	var shipment models.Shipment
	err := r.db.DB.GetContext(ctx, &shipment, query, trackingNo)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get shipment by tracking number", "error", err, "trackingNo", trackingNo)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &shipment, nil
}

// GetByOrderID retrieves all shipments for an order, newest first
func (r *ShipmentRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE order_id = $1
		ORDER BY created_at DESC
	`

	var shipments []*models.Shipment
	err := r.db.DB.SelectContext(ctx, &shipments, query, orderID)

	if err != nil {
		r.logger.Error("Failed to get shipments by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return shipments, nil
}

// GetActiveByOrderID retrieves an order's shipments still in an active
// (cancellable) status
func (r *ShipmentRepository) GetActiveByOrderID(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE order_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
	`

	active := models.ActiveStatuses()
	statuses := make([]string, 0, len(active))
	for _, s := range active {
		statuses = append(statuses, string(s))
	}

	var shipments []*models.Shipment
	err := r.db.DB.SelectContext(ctx, &shipments, query, orderID, pq.Array(statuses))

	if err != nil {
		r.logger.Error("Failed to get active shipments", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return shipments, nil
}

// TrackingNoExists reports whether a tracking number is already in use
func (r *ShipmentRepository) TrackingNoExists(ctx context.Context, trackingNo string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM shipments WHERE tracking_no = $1)`

	var exists bool
	err := r.db.DB.GetContext(ctx, &exists, query, trackingNo)

	if err != nil {
		r.logger.Error("Failed to check tracking number", "error", err, "trackingNo", trackingNo)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return exists, nil
}

// Update persists the mutable fields of a shipment
func (r *ShipmentRepository) Update(ctx context.Context, shipment *models.Shipment) error {
	query := `
		UPDATE shipments
		SET status = $1, shipped_at = $2, delivered_at = $3, estimated_delivery = $4,
			actual_weight = $5, shipping_address = $6, notes = $7, updated_at = NOW()
		WHERE id = $8
	`

	result, err := r.db.DB.ExecContext(
		ctx,
		query,
		shipment.Status,
		shipment.ShippedAt,
		shipment.DeliveredAt,
		shipment.EstimatedDelivery,
		shipment.ActualWeight,
		shipment.ShippingAddress,
		shipment.Notes,
		shipment.ID,
	)

	if err != nil {
		r.logger.Error("Failed to update shipment", "error", err, "shipmentID", shipment.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a shipment; its history rows cascade
func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, id)

	if err != nil {
		r.logger.Error("Failed to delete shipment", "error", err, "shipmentID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// List retrieves shipments, newest first
func (r *ShipmentRepository) List(ctx context.Context, limit, offset int) ([]*models.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var shipments []*models.Shipment
	err := r.db.DB.SelectContext(ctx, &shipments, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to list shipments", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return shipments, nil
}

// StatusCount is one row of a grouped count
type StatusCount struct {
	Status models.ShipmentStatus `db:"status" json:"status"`
	Count  int64                 `db:"count" json:"count"`
}

// CarrierCount is one row of a grouped count
type CarrierCount struct {
	Carrier models.Carrier `db:"carrier" json:"carrier"`
	Count   int64          `db:"count" json:"count"`
}

// CountsByStatus returns shipment counts grouped by status
func (r *ShipmentRepository) CountsByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.DB.SelectContext(ctx, &counts,
		`SELECT status, COUNT(*) AS count FROM shipments GROUP BY status`)

	if err != nil {
		r.logger.Error("Failed to count shipments by status", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return counts, nil
}

// CountsByCarrier returns shipment counts grouped by carrier
func (r *ShipmentRepository) CountsByCarrier(ctx context.Context) ([]CarrierCount, error) {
	var counts []CarrierCount
	err := r.db.DB.SelectContext(ctx, &counts,
		`SELECT carrier, COUNT(*) AS count FROM shipments GROUP BY carrier`)

	if err != nil {
		r.logger.Error("Failed to count shipments by carrier", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return counts, nil
}

// CountAll returns the total number of shipments
func (r *ShipmentRepository) CountAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM shipments`)

	if err != nil {
		r.logger.Error("Failed to count shipments", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return total, nil
}
