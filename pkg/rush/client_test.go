package rush

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftrush/rush-go/pkg/models"
)

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(ClientConfig{Sandbox: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
}

func TestNewClient_SuppliedTransportSkipsCredentialCheck(t *testing.T) {
	client, err := NewClient(ClientConfig{Transport: newFakeTransport()})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClient_RegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	client, err := NewClient(ClientConfig{
		Transport: newFakeTransport(),
		Metrics:   registry,
	})
	require.NoError(t, err)
	require.NotNil(t, client.metrics)

	client.metrics.recordPoll()
	families, err := registry.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "rush_delivery_polls_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCreateDelivery_GeneratesOrderReference(t *testing.T) {
	client, err := NewClient(ClientConfig{Transport: newFakeTransport()})
	require.NoError(t, err)

	d, err := client.CreateDelivery(DeliveryOptions{})
	require.NoError(t, err)
	t.Cleanup(d.Complete)

	ref := d.OrderReferenceID()
	require.NotEmpty(t, ref)
	_, err = uuid.Parse(ref)
	assert.NoError(t, err, "generated reference should be a uuid")
}

func TestCreateDelivery_KeepsCallerOrderReference(t *testing.T) {
	client, err := NewClient(ClientConfig{Transport: newFakeTransport()})
	require.NoError(t, err)

	d, err := client.CreateDelivery(DeliveryOptions{OrderReferenceID: "order-42"})
	require.NoError(t, err)
	t.Cleanup(d.Complete)

	assert.Equal(t, "order-42", d.OrderReferenceID())
}

func TestCreateDelivery_SeedsWaypointsAndItems(t *testing.T) {
	client, err := NewClient(ClientConfig{Transport: newFakeTransport()})
	require.NoError(t, err)

	pickup := seabringPickup()
	dropoff := willoughbyDropoff()
	d, err := client.CreateDelivery(DeliveryOptions{
		Pickup:  &pickup,
		Dropoff: &dropoff,
		Items: []models.Item{
			{Title: "flowers", Quantity: 1, Price: 25},
		},
	})
	require.NoError(t, err)
	t.Cleanup(d.Complete)

	assert.True(t, d.Pickup().HasLocation())
	assert.True(t, d.Dropoff().HasLocation())
	require.Len(t, d.Items(), 1)
	assert.Equal(t, "flowers", d.Items()[0].Title)
}

func TestListDeliveries_ReturnsTrackedDeliveries(t *testing.T) {
	api := newFakeTransport()
	api.respond(http.MethodGet, "deliveries", 200, []map[string]interface{}{
		{"delivery_id": "d1", "status": "completed", "fee": 12.5},
		{"delivery_id": "d2", "status": "en_route_to_pickup"},
	})

	client, err := NewClient(ClientConfig{Transport: api})
	require.NoError(t, err)

	deliveries := client.ListDeliveries(context.Background())
	require.Len(t, deliveries, 2)
	assert.Equal(t, "d1", deliveries[0].DeliveryID())
	assert.Equal(t, StatusCompleted, deliveries[0].Status())
	assert.Equal(t, 12.5, deliveries[0].Fee())
	assert.Equal(t, "d2", deliveries[1].DeliveryID())
	assert.False(t, deliveries[1].Polling(), "listed deliveries are not auto-polled")
}

func TestListDeliveries_FailureYieldsEmptyList(t *testing.T) {
	api := newFakeTransport()
	api.respond(http.MethodGet, "deliveries", 500, map[string]string{"error": "boom"})

	client, err := NewClient(ClientConfig{Transport: api})
	require.NoError(t, err)

	assert.Empty(t, client.ListDeliveries(context.Background()))
}
