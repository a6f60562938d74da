package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/internal/database"
	"github.com/shipworks/shipping-service/internal/events"
	"github.com/shipworks/shipping-service/internal/handlers"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/rabbitmq"
	"github.com/shipworks/shipping-service/internal/repository"
	"github.com/shipworks/shipping-service/internal/service"
	"github.com/shipworks/shipping-service/internal/tracking"
	"github.com/shipworks/shipping-service/pkg/logger"
	"github.com/shipworks/shipping-service/pkg/retry"
)

func main() {
	queueFlag := flag.String("queue", "", "queue name to consume from (overrides RABBITMQ_QUEUE)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)

	queue := cfg.RabbitMQ.Queue
	if *queueFlag != "" {
		queue = *queueFlag
	}

	l.Info("Starting order events consumer", "queue", queue)

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

	router := handlers.NewOrderEventsRouter(shipmentService, l)
	consumer := rabbitmq.NewConsumer(cfg.RabbitMQ, queue, events.InboundRoutingKeys(), l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Run(ctx, router); err != nil {
		l.Error("Consumer stopped with error", "error", err)
	}

	publisher.Close()

	if err := db.Close(); err != nil {
		l.Error("Error closing database connection", "error", err)
	}

	l.Info("Consumer stopped")
}
