package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations creates the schema if it does not exist yet
func (d *Database) RunMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shipments (
		id VARCHAR(50) PRIMARY KEY,
		order_id BIGINT NOT NULL,
		tracking_no VARCHAR(50) NOT NULL UNIQUE,
		carrier VARCHAR(50) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		shipped_at TIMESTAMPTZ,
		delivered_at TIMESTAMPTZ,
		estimated_delivery TIMESTAMPTZ,
		actual_weight DECIMAL(10, 2),
		shipping_address TEXT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_shipments_order_id ON shipments(order_id);
	CREATE INDEX IF NOT EXISTS idx_shipments_order_status ON shipments(order_id, status);
	CREATE INDEX IF NOT EXISTS idx_shipments_tracking_no ON shipments(tracking_no);
	CREATE INDEX IF NOT EXISTS idx_shipments_created_at ON shipments(created_at);

	CREATE TABLE IF NOT EXISTS shipment_history (
		id VARCHAR(50) PRIMARY KEY,
		shipment_id VARCHAR(50) NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL,
		location VARCHAR(255),
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_shipment_history_shipment ON shipment_history(shipment_id, created_at);
	`

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
