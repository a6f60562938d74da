package repository

import (
	"context"
	"fmt"

	"github.com/shipworks/shipping-service/internal/database"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/pkg/logger"
)

// HistoryRepository provides access to the shipment audit trail
type HistoryRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewHistoryRepository creates a new HistoryRepository instance
func NewHistoryRepository(db *database.Database, logger logger.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history entry. History rows are never updated or deleted.
func (r *HistoryRepository) Create(ctx context.Context, entry *models.ShipmentHistory) error {
	query := `
		INSERT INTO shipment_history (id, shipment_id, status, location, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.ShipmentID,
		entry.Status,
		entry.Location,
		entry.Description,
		entry.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create history entry", "error", err, "shipmentID", entry.ShipmentID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByShipmentID retrieves the history of a shipment, newest first
func (r *HistoryRepository) GetByShipmentID(ctx context.Context, shipmentID string) ([]*models.ShipmentHistory, error) {
	query := `
		SELECT id, shipment_id, status, location, description, created_at
		FROM shipment_history
		WHERE shipment_id = $1
		ORDER BY created_at DESC
	`

	var entries []*models.ShipmentHistory
	err := r.db.DB.SelectContext(ctx, &entries, query, shipmentID)

	if err != nil {
		r.logger.Error("Failed to get shipment history", "error", err, "shipmentID", shipmentID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return entries, nil
}
