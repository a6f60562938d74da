package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shipworks/shipping-service/internal/api"
	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/internal/database"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/rabbitmq"
	"github.com/shipworks/shipping-service/internal/repository"
	"github.com/shipworks/shipping-service/internal/service"
	"github.com/shipworks/shipping-service/internal/tracking"
	"github.com/shipworks/shipping-service/pkg/logger"
	"github.com/shipworks/shipping-service/pkg/retry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)
	l.Info("Starting shipping API server...")

	// The database may come up after us; retry the initial connection
	var db *database.Database
	err = retry.Retry(context.Background(), func() error {
		var connErr error
		db, connErr = database.New(cfg, l)
		return connErr
	}, &retry.RetryConfig{
		MaxAttempts:     5,
		BackoffStrategy: retry.NewDefaultExponentialBackoff(),
		Logger:          l,
	})

	if err != nil {
		l.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(); err != nil {
		l.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	shipmentRepo := repository.NewShipmentRepository(db, l)
	historyRepo := repository.NewHistoryRepository(db, l)
	allocator := tracking.NewAllocator(shipmentRepo.TrackingNoExists, l)
	publisher := rabbitmq.NewPublisher(cfg.RabbitMQ, l)

	shipmentService := service.NewShipmentService(
		shipmentRepo,
		historyRepo,
		allocator,
		publisher,
		models.Carrier(cfg.DefaultCarrier),
		l,
	)

	server := api.NewServer(cfg, shipmentService, l)

	go func() {
		l.Info(fmt.Sprintf("Server is starting on port %d", cfg.Port))

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			l.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error("Server forced to shutdown", "error", err)
	}

	publisher.Close()

	if err := db.Close(); err != nil {
		l.Error("Error closing database connection", "error", err)
	}

	l.Info("Server exiting")
}
