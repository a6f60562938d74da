package handlers

import (
	"context"
	"testing"

	"github.com/shipworks/shipping-service/internal/events"
	"github.com/shipworks/shipping-service/internal/models"
	"github.com/shipworks/shipping-service/internal/rabbitmq"
	"github.com/shipworks/shipping-service/internal/repository"
	"github.com/shipworks/shipping-service/internal/service"
	"github.com/shipworks/shipping-service/internal/tracking"
	"github.com/shipworks/shipping-service/pkg/logger"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ShipmentStore for driving the real lifecycle
// service through the router
type memStore struct {
	shipments map[string]*models.Shipment
}

func newMemStore() *memStore {
	return &memStore{shipments: make(map[string]*models.Shipment)}
}

func (m *memStore) Create(ctx context.Context, s *models.Shipment) error {
	for _, existing := range m.shipments {
		if existing.TrackingNo == s.TrackingNo {
			return repository.ErrDuplicateTracking
		}
	}
	m.shipments[s.ID] = s
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.Shipment, error) {
	s, ok := m.shipments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (m *memStore) GetByTrackingNo(ctx context.Context, trackingNo string) (*models.Shipment, error) {
	for _, s := range m.shipments {
		if s.TrackingNo == trackingNo {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetByOrderID(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	var out []*models.Shipment
	for _, s := range m.shipments {
		if s.OrderID == orderID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) GetActiveByOrderID(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	var out []*models.Shipment
	for _, s := range m.shipments {
		if s.OrderID != orderID {
			continue
		}
		for _, status := range models.ActiveStatuses() {
			if s.Status == status {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, s *models.Shipment) error {
	if _, ok := m.shipments[s.ID]; !ok {
		return repository.ErrNotFound
	}
	m.shipments[s.ID] = s
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	delete(m.shipments, id)
	return nil
}

func (m *memStore) List(ctx context.Context, limit, offset int) ([]*models.Shipment, error) {
	return nil, nil
}

func (m *memStore) CountsByStatus(ctx context.Context) ([]repository.StatusCount, error) {
	return nil, nil
}

func (m *memStore) CountsByCarrier(ctx context.Context) ([]repository.CarrierCount, error) {
	return nil, nil
}

func (m *memStore) CountAll(ctx context.Context) (int64, error) {
	return int64(len(m.shipments)), nil
}

func (m *memStore) exists(ctx context.Context, trackingNo string) (bool, error) {
	for _, s := range m.shipments {
		if s.TrackingNo == trackingNo {
			return true, nil
		}
	}
	return false, nil
}

type memHistory struct {
	entries []*models.ShipmentHistory
}

func (m *memHistory) Create(ctx context.Context, entry *models.ShipmentHistory) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memHistory) GetByShipmentID(ctx context.Context, shipmentID string) ([]*models.ShipmentHistory, error) {
	return m.entries, nil
}

type memPublisher struct {
	published map[string][]interface{}
}

func newMemPublisher() *memPublisher {
	return &memPublisher{published: make(map[string][]interface{})}
}

func (m *memPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	m.published[routingKey] = append(m.published[routingKey], payload)
	return nil
}

func newEnd2EndFixture(t *testing.T) (*OrderEventsRouter, *memStore, *memPublisher) {
	t.Helper()

	l := logger.NewLogger("error")
	store := newMemStore()
	publisher := newMemPublisher()
	allocator := tracking.NewAllocator(store.exists, l)
	svc := service.NewShipmentService(store, &memHistory{}, allocator, publisher, models.CarrierDHL, l)

	return NewOrderEventsRouter(svc, l), store, publisher
}

func TestOrderConfirmedEndToEnd(t *testing.T) {
	router, store, publisher := newEnd2EndFixture(t)

	decision := router.Route(context.Background(), events.RoutingKeyOrderConfirmed,
		[]byte(`{"order_id": 7, "shipping_address": "42 Galaxy Way"}`))

	require.Equal(t, rabbitmq.Ack, decision)
	require.Len(t, store.shipments, 1)

	var shipment *models.Shipment
	for _, s := range store.shipments {
		shipment = s
	}

	require.Equal(t, int64(7), shipment.OrderID)
	require.Equal(t, models.StatusPending, shipment.Status)
	require.Equal(t, models.CarrierDHL, shipment.Carrier)
	require.Equal(t, "42 Galaxy Way", shipment.ShippingAddress)
	require.Regexp(t, `^TRK\d{4}$`, shipment.TrackingNo)

	created := publisher.published[events.RoutingKeyShipmentCreated]
	require.Len(t, created, 1)
	evt := created[0].(*events.ShipmentCreated)
	require.Equal(t, int64(7), evt.OrderID)
	require.Equal(t, shipment.TrackingNo, evt.TrackingNo)
}

func TestOrderConfirmedRedeliveryEndToEnd(t *testing.T) {
	router, store, publisher := newEnd2EndFixture(t)

	payload := []byte(`{"order_id": 7}`)

	require.Equal(t, rabbitmq.Ack, router.Route(context.Background(), events.RoutingKeyOrderConfirmed, payload))
	require.Equal(t, rabbitmq.Ack, router.Route(context.Background(), events.RoutingKeyOrderConfirmed, payload))

	require.Len(t, store.shipments, 1, "redelivery must not create a second shipment")
	require.Len(t, publisher.published[events.RoutingKeyShipmentCreated], 1)
}

func TestOrderCancelledEndToEnd(t *testing.T) {
	router, store, publisher := newEnd2EndFixture(t)

	require.Equal(t, rabbitmq.Ack,
		router.Route(context.Background(), events.RoutingKeyOrderConfirmed, []byte(`{"order_id": 11}`)))
	require.Equal(t, rabbitmq.Ack,
		router.Route(context.Background(), events.RoutingKeyOrderCancelled, []byte(`{"order_id": 11}`)))

	for _, s := range store.shipments {
		require.Equal(t, models.StatusCancelled, s.Status)
	}

	cancelled := publisher.published[events.RoutingKeyShipmentCancelled]
	require.Len(t, cancelled, 1)
	evt := cancelled[0].(*events.StatusChanged)
	require.Equal(t, int64(11), evt.OrderID)
	require.Equal(t, "order_cancelled", evt.Reason)
}
