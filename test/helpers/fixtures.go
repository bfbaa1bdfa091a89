package helpers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/swiftrush/rush-go/internal/sandbox"
	"github.com/swiftrush/rush-go/pkg/models"
	"github.com/swiftrush/rush-go/pkg/rush"
)

// CreateTestPickup creates a pickup waypoint with default values
func CreateTestPickup() *models.Waypoint {
	return &models.Waypoint{
		Contact: &models.Contact{
			FirstName: "Ryan",
			LastName:  "Cheney",
			Phone:     &models.Phone{Number: "716-555-5000"},
		},
		Location: &models.Location{
			Address:    "64 Seabring St",
			City:       "Brooklyn",
			State:      "NY",
			PostalCode: "11231",
			Country:    "US",
		},
	}
}

// CreateTestDropoff creates a dropoff waypoint with default values
func CreateTestDropoff() *models.Waypoint {
	return &models.Waypoint{
		Contact: &models.Contact{
			FirstName: "Karen",
			LastName:  "Holmes",
			Phone:     &models.Phone{Number: "585-555-5000"},
		},
		Location: &models.Location{
			Address:    "80 Willoughby St",
			Address2:   "#3B",
			City:       "Brooklyn",
			State:      "NY",
			PostalCode: "11201",
			Country:    "US",
		},
	}
}

// CreateTestItem creates a delivery item with default values
func CreateTestItem() *models.Item {
	return &models.Item{
		Title:     "some food",
		Quantity:  1,
		Price:     10,
		IsFragile: true,
	}
}

// CreateTestDeliveryOptions creates delivery options with default waypoints
// and a single item
func CreateTestDeliveryOptions() rush.DeliveryOptions {
	return rush.DeliveryOptions{
		Pickup:  CreateTestPickup(),
		Dropoff: CreateTestDropoff(),
		Item:    CreateTestItem(),
	}
}

// CreateTestRating creates a five-points dropoff rating
func CreateTestRating() models.Rating {
	return models.Rating{
		Waypoint: models.WaypointDropoff,
		Type:     models.RatingTypeFivePoints,
		Value:    5,
		Tags:     []string{"courier_on_time"},
	}
}

// StartSandbox starts an in-process sandbox backend and returns its server.
// The server is shut down when the test finishes.
func StartSandbox(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(sandbox.NewServer(nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

// NewSandboxClient creates a client wired to an in-process sandbox server
func NewSandboxClient(t *testing.T, srv *httptest.Server, simulate time.Duration) *rush.Client {
	t.Helper()

	client, err := rush.NewClient(rush.ClientConfig{
		ClientID:     "sandbox-client",
		ClientSecret: "sandbox-secret",
		Sandbox:      true,
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/token",
		PollInterval: 50 * time.Millisecond,
		Simulate:     simulate,
	})
	if err != nil {
		t.Fatalf("Failed to create sandbox client: %v", err)
	}
	return client
}
