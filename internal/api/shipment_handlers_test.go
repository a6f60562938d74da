package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shipworks/shipping-service/internal/config"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/repository"
	"github.com/shipworks/shipping-service/internal/service"
	"github.com/shipworks/shipping-service/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fakeShipmentAPI struct {
	shipment  *models.Shipment
	shipments []*models.Shipment
	history   []*models.ShipmentHistory
	stats     *service.Statistics
	err       error

	updateID string
	updateIn service.UpdateStatusInput
}

func (f *fakeShipmentAPI) CreateShipment(ctx context.Context, in service.CreateShipmentInput) (*models.Shipment, error) {
	return f.shipment, f.err
}

func (f *fakeShipmentAPI) UpdateStatus(ctx context.Context, id string, in service.UpdateStatusInput) (*models.Shipment, error) {
	f.updateID = id
	f.updateIn = in
	return f.shipment, f.err
}

func (f *fakeShipmentAPI) GetShipment(ctx context.Context, id string) (*models.Shipment, error) {
	return f.shipment, f.err
}

func (f *fakeShipmentAPI) GetByTrackingNo(ctx context.Context, trackingNo string) (*models.Shipment, error) {
	return f.shipment, f.err
}

func (f *fakeShipmentAPI) GetShipmentsForOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	return f.shipments, f.err
}

func (f *fakeShipmentAPI) ListShipments(ctx context.Context, limit, offset int) ([]*models.Shipment, error) {
	return f.shipments, f.err
}

func (f *fakeShipmentAPI) GetHistory(ctx context.Context, shipmentID string) ([]*models.ShipmentHistory, error) {
	return f.history, f.err
}

func (f *fakeShipmentAPI) GetStatistics(ctx context.Context) (*service.Statistics, error) {
	return f.stats, f.err
}

func (f *fakeShipmentAPI) DeleteShipment(ctx context.Context, id string) error {
	return f.err
}

func newTestServer(fake *fakeShipmentAPI) *Server {
	cfg := &config.Config{Port: 0}
	return NewServer(cfg, fake, logger.NewLogger("error"))
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateShipmentReturns201(t *testing.T) {
	fake := &fakeShipmentAPI{shipment: models.NewShipment(5, "TRK5001", models.CarrierDHL, "")}
	s := newTestServer(fake)

	rec := doRequest(s, http.MethodPost, "/api/v1/shipments", []byte(`{"order_id": 5}`))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestCreateShipmentBadPayload(t *testing.T) {
	s := newTestServer(&fakeShipmentAPI{})

	rec := doRequest(s, http.MethodPost, "/api/v1/shipments", []byte(`{order_id:`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateShipmentInvalidTransitionReturns400(t *testing.T) {
	fake := &fakeShipmentAPI{
		err: &models.InvalidTransitionError{From: models.StatusPending, To: models.StatusFailed},
	}
	s := newTestServer(fake)

	rec := doRequest(s, http.MethodPatch, "/api/v1/shipments/shp-1", []byte(`{"status": "FAILED"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "invalid status transition from PENDING to FAILED")
}

func TestUpdateShipmentRequiresStatus(t *testing.T) {
	s := newTestServer(&fakeShipmentAPI{})

	rec := doRequest(s, http.MethodPatch, "/api/v1/shipments/shp-1", []byte(`{"location": "hub"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateShipmentPassesFieldsThrough(t *testing.T) {
	fake := &fakeShipmentAPI{shipment: models.NewShipment(5, "TRK5001", models.CarrierDHL, "")}
	s := newTestServer(fake)

	rec := doRequest(s, http.MethodPatch, "/api/v1/shipments/shp-9",
		[]byte(`{"status": "PICKED_UP", "location": "Pune hub", "description": "scanned"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "shp-9", fake.updateID)
	require.Equal(t, models.StatusPickedUp, fake.updateIn.Status)
	require.Equal(t, "Pune hub", fake.updateIn.Location)
	require.Equal(t, "scanned", fake.updateIn.Description)
}

func TestGetShipmentNotFoundReturns404(t *testing.T) {
	fake := &fakeShipmentAPI{err: repository.ErrNotFound}
	s := newTestServer(fake)

	rec := doRequest(s, http.MethodGet, "/api/v1/shipments/shp-missing", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestByTrackingRequiresParameter(t *testing.T) {
	s := newTestServer(&fakeShipmentAPI{})

	rec := doRequest(s, http.MethodGet, "/api/v1/shipments/by-tracking", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestByOrderRejectsNonIntegerOrderID(t *testing.T) {
	s := newTestServer(&fakeShipmentAPI{})

	rec := doRequest(s, http.MethodGet, "/api/v1/shipments/by-order?order_id=abc", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestByOrderWithoutMatchesReturnsEmptyArray(t *testing.T) {
	// A no-match lookup leaves the service's slice nil; the response body
	// must still carry an empty array rather than null
	s := newTestServer(&fakeShipmentAPI{shipments: nil})

	rec := doRequest(s, http.MethodGet, "/api/v1/shipments/by-order?order_id=42", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListWithoutShipmentsReturnsEmptyArray(t *testing.T) {
	s := newTestServer(&fakeShipmentAPI{shipments: nil})

	rec := doRequest(s, http.MethodGet, "/api/v1/shipments", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHistoryWithoutEntriesReturnsEmptyArray(t *testing.T) {
	s := newTestServer(&fakeShipmentAPI{history: nil})

	rec := doRequest(s, http.MethodGet, "/api/v1/shipments/shp-1/history", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&fakeShipmentAPI{})

	rec := doRequest(s, http.MethodGet, "/api/v1/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
}
