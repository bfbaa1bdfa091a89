package sandbox

import (
	"sync"

	"github.com/swiftrush/rush-go/pkg/geo"
	"github.com/swiftrush/rush-go/pkg/models"
)

// Courier movement per status poll, in meters. Roughly a minute of bike
// travel so repeated polls show visible progress.
const courierStepMeters = 80.0

// quoteRecord is an issued quote awaiting confirmation.
type quoteRecord struct {
	ID           string
	Fee          float64
	CurrencyCode string
	PickupETA    int
	DropoffETA   int
	Pickup       *models.Waypoint
	Dropoff      *models.Waypoint
}

// deliveryRecord is the backend's view of one delivery.
type deliveryRecord struct {
	ID               string
	QuoteID          string
	OrderReferenceID string
	Fee              float64
	CurrencyCode     string
	Status           string
	Pickup           *models.Waypoint
	Dropoff          *models.Waypoint
	Items            []models.Item
	Courier          courierRecord
	PickupETA        int
	DropoffETA       int
	Ratings          []map[string]interface{}
}

type courierRecord struct {
	Name       string
	Phone      string
	PictureURL string
	Vehicle    *models.Vehicle
	Position   geo.Position
}

// advance moves the courier one step along its bearing and ticks the ETAs
// down. Called on every status poll so trackers observe motion.
func (r *deliveryRecord) advance() {
	r.Courier.Position = geo.DestinationPoint(r.Courier.Position, courierStepMeters)
	if r.PickupETA > 1 {
		r.PickupETA--
	}
	if r.DropoffETA > 1 {
		r.DropoffETA--
	}
}

// store is the in-memory state behind the sandbox server.
type store struct {
	mu         sync.Mutex
	quotes     map[string]*quoteRecord
	deliveries map[string]*deliveryRecord
}

func newStore() *store {
	return &store{
		quotes:     make(map[string]*quoteRecord),
		deliveries: make(map[string]*deliveryRecord),
	}
}
