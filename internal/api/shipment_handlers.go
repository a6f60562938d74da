package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/service"
)

type createShipmentRequest struct {
	OrderID           int64      `json:"order_id"`
	Carrier           string     `json:"carrier,omitempty"`
	ShippingAddress   string     `json:"shipping_address,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ActualWeight      *float64   `json:"actual_weight,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

type updateShipmentRequest struct {
	Status       string   `json:"status"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	ActualWeight *float64 `json:"actual_weight,omitempty"`
}

// createShipmentHandler creates a new shipment
func (s *Server) createShipmentHandler(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	shipment, err := s.shipments.CreateShipment(r.Context(), service.CreateShipmentInput{
		OrderID:           req.OrderID,
		Carrier:           models.Carrier(req.Carrier),
		ShippingAddress:   req.ShippingAddress,
		EstimatedDelivery: req.EstimatedDelivery,
		ActualWeight:      req.ActualWeight,
		Notes:             req.Notes,
	})

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: shipment})
}

// updateShipmentHandler applies a status transition to a shipment
func (s *Server) updateShipmentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateShipmentRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Status == "" {
		s.respondWithError(w, http.StatusBadRequest, "status is required")
		return
	}

	shipment, err := s.shipments.UpdateStatus(r.Context(), id, service.UpdateStatusInput{
		Status:       models.ShipmentStatus(req.Status),
		Location:     req.Location,
		Description:  req.Description,
		Notes:        req.Notes,
		ActualWeight: req.ActualWeight,
	})

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: shipment})
}

// getShipmentHandler returns a single shipment
func (s *Server) getShipmentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	shipment, err := s.shipments.GetShipment(r.Context(), id)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: shipment})
}

// deleteShipmentHandler removes a shipment and its history
func (s *Server) deleteShipmentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.shipments.DeleteShipment(r.Context(), id); err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// listShipmentsHandler returns shipments, newest first
func (s *Server) listShipmentsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	shipments, err := s.shipments.ListShipments(r.Context(), limit, offset)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	if shipments == nil {
		shipments = []*models.Shipment{}
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: shipments})
}

// historyHandler returns the audit trail of a shipment
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	history, err := s.shipments.GetHistory(r.Context(), id)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	if history == nil {
		history = []*models.ShipmentHistory{}
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: history})
}

// byTrackingHandler returns the shipment with the given tracking number
func (s *Server) byTrackingHandler(w http.ResponseWriter, r *http.Request) {
	trackingNo := r.URL.Query().Get("tracking_no")

	if trackingNo == "" {
		s.respondWithError(w, http.StatusBadRequest, "tracking_no parameter is required")
		return
	}

	shipment, err := s.shipments.GetByTrackingNo(r.Context(), trackingNo)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: shipment})
}

// byOrderHandler returns all shipments for an order
func (s *Server) byOrderHandler(w http.ResponseWriter, r *http.Request) {
	rawOrderID := r.URL.Query().Get("order_id")

	if rawOrderID == "" {
		s.respondWithError(w, http.StatusBadRequest, "order_id parameter is required")
		return
	}

	orderID, err := strconv.ParseInt(rawOrderID, 10, 64)

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "order_id must be an integer")
		return
	}

	shipments, err := s.shipments.GetShipmentsForOrder(r.Context(), orderID)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	if shipments == nil {
		shipments = []*models.Shipment{}
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: shipments})
}

// statisticsHandler returns shipment counts grouped by status and carrier
func (s *Server) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.shipments.GetStatistics(r.Context())

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats})
}
