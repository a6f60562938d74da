package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/service"
	"github.com/shipworks/shipping-service/pkg/logger"
)

// ShipmentAPI is the service surface the HTTP layer exposes
type ShipmentAPI interface {
	CreateShipment(ctx context.Context, in service.CreateShipmentInput) (*models.Shipment, error)
	UpdateStatus(ctx context.Context, id string, in service.UpdateStatusInput) (*models.Shipment, error)
	GetShipment(ctx context.Context, id string) (*models.Shipment, error)
	GetByTrackingNo(ctx context.Context, trackingNo string) (*models.Shipment, error)
	GetShipmentsForOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error)
	ListShipments(ctx context.Context, limit, offset int) ([]*models.Shipment, error)
	GetHistory(ctx context.Context, shipmentID string) ([]*models.ShipmentHistory, error)
	GetStatistics(ctx context.Context) (*service.Statistics, error)
	DeleteShipment(ctx context.Context, id string) error
}

// Server is the HTTP front of the shipping service
type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server
	shipments  ShipmentAPI
}

// NewServer creates an API server over the given shipment service
func NewServer(cfg *config.Config, shipments ShipmentAPI, logger logger.Logger) *Server {
	r := mux.NewRouter()

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		shipments: shipments,
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api.HandleFunc("/shipments", s.listShipmentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/shipments", s.createShipmentHandler).Methods(http.MethodPost)
	api.HandleFunc("/shipments/statistics", s.statisticsHandler).Methods(http.MethodGet)
	api.HandleFunc("/shipments/by-tracking", s.byTrackingHandler).Methods(http.MethodGet)
	api.HandleFunc("/shipments/by-order", s.byOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/shipments/{id}", s.getShipmentHandler).Methods(http.MethodGet)
	api.HandleFunc("/shipments/{id}", s.updateShipmentHandler).Methods(http.MethodPatch)
	api.HandleFunc("/shipments/{id}", s.deleteShipmentHandler).Methods(http.MethodDelete)
	api.HandleFunc("/shipments/{id}/history", s.historyHandler).Methods(http.MethodGet)
}

// loggingMiddleware logs every processed request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
