package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/repository"
	"github.com/shipworks/shipping-service/internal/tracking"
	apperrors "github.com/shipworks/shipping-service/pkg/errors"
)

// ApiResponse is the envelope every endpoint responds with
type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   "0.1.0",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithServiceError maps domain errors to HTTP responses: invalid
// transitions and bad input become 400, unknown shipments 404, everything
// else a generic 500 without leaking internals
func (s *Server) respondWithServiceError(w http.ResponseWriter, err error) {
	var transitionErr *models.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		s.respondWithError(w, http.StatusBadRequest, transitionErr.Error())
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		s.respondWithError(w, appErr.StatusCode, appErr.Error())
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Shipment not found")
		return
	}

	if errors.Is(err, tracking.ErrAllocationExhausted) {
		s.logger.Error("Tracking number allocation exhausted", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Could not allocate a tracking number")
		return
	}

	s.logger.Error("Unhandled service error", "error", err)
	s.respondWithError(w, http.StatusInternalServerError, "Internal server error")
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
