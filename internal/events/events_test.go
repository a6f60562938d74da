package events

import (
	"testing"
	"time"

	"github.com/shipworks/shipping-service/internal/models"
	"github.com/stretchr/testify/require"
)

func TestRoutingKeyForStatus(t *testing.T) {
	cases := map[models.ShipmentStatus]string{
		models.StatusPickedUp:       RoutingKeyShipmentPickedUp,
		models.StatusInTransit:      RoutingKeyShipmentInTransit,
		models.StatusOutForDelivery: RoutingKeyShipmentOutForDelivery,
		models.StatusDelivered:      RoutingKeyShipmentDelivered,
		models.StatusCancelled:      RoutingKeyShipmentCancelled,
		models.StatusFailed:         RoutingKeyShipmentFailed,
	}

	for status, want := range cases {
		require.Equal(t, want, RoutingKeyForStatus(status))
	}

	require.Empty(t, RoutingKeyForStatus(models.StatusPending), "no transition targets PENDING")
}

func TestInboundRoutingKeys(t *testing.T) {
	require.Equal(t, []string{"order.confirmed", "order.cancelled"}, InboundRoutingKeys())
}

func TestNewShipmentCreated(t *testing.T) {
	s := models.NewShipment(42, "TRK7777", models.CarrierBluedart, "addr")

	evt := NewShipmentCreated(s)

	require.Equal(t, s.ID, evt.ShipmentID)
	require.Equal(t, int64(42), evt.OrderID)
	require.Equal(t, "TRK7777", evt.TrackingNo)
	require.Equal(t, models.CarrierBluedart, evt.Carrier)
	require.Equal(t, models.StatusPending, evt.Status)
}

func TestNewStatusChangedOmitsDeliveredAtUnlessDelivered(t *testing.T) {
	s := models.NewShipment(1, "TRK0001", models.CarrierDHL, "")
	s.Status = models.StatusInTransit

	evt := NewStatusChanged(s, models.StatusPickedUp)

	require.Equal(t, models.StatusPickedUp, evt.OldStatus)
	require.Equal(t, models.StatusInTransit, evt.NewStatus)
	require.Nil(t, evt.DeliveredAt)
}

func TestNewStatusChangedCarriesDeliveredAt(t *testing.T) {
	s := models.NewShipment(1, "TRK0001", models.CarrierDHL, "")
	s.Status = models.StatusDelivered
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.StampStatusTimes(now)

	evt := NewStatusChanged(s, models.StatusOutForDelivery)

	require.NotNil(t, evt.DeliveredAt)
	require.Equal(t, now, *evt.DeliveredAt)
}
