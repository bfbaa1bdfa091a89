package rush

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swiftrush/rush-go/pkg/geo"
	"github.com/swiftrush/rush-go/pkg/models"
)

// Assumed courier travel speed for motion extrapolation: 5km/h on a bike.
const courierSpeedMps = 5000.0 / 60 / 60

// How often extrapolated positions are synthesized between real polls.
const extrapolationFrameInterval = time.Second

// CourierPayload is the wire shape of the courier object inside a delivery
// response.
type CourierPayload struct {
	Name       string          `json:"name,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	PictureURL string          `json:"picture_url,omitempty"`
	Vehicle    *models.Vehicle `json:"vehicle,omitempty"`
	Location   *geo.Position   `json:"location,omitempty"`
}

// Courier tracks the identity, vehicle and position of the courier working a
// delivery. A courier is owned by exactly one Delivery: the polling routine
// patches it in place so subscribers holding the reference keep observing
// fresh data, and it is never shared across deliveries.
type Courier struct {
	mu sync.Mutex

	name        string
	phone       string
	pictureURL  string
	vehicle     *models.Vehicle
	position    geo.Position
	hasPosition bool

	extrapolate bool
	extraStop   chan struct{}
	finished    bool

	moved        emitter[geo.Position]
	vehicleEvent emitter[models.Vehicle]

	logger *zap.Logger
}

// NewCourier builds a tracker from the first courier payload a poll returned.
// The initial position is recorded without emitting a moved event; movement
// events start with the first subsequent update.
func NewCourier(payload CourierPayload, extrapolate bool, logger *zap.Logger) *Courier {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Courier{
		name:        payload.Name,
		phone:       payload.Phone,
		pictureURL:  payload.PictureURL,
		extrapolate: extrapolate,
		logger:      logger,
	}

	if payload.Vehicle != nil {
		c.vehicle = payload.Vehicle
	}
	if payload.Location != nil {
		c.position = *payload.Location
		c.hasPosition = true
	}

	return c
}

// OnMoved subscribes to position changes, real and extrapolated. The returned
// func unsubscribes.
func (c *Courier) OnMoved(fn func(geo.Position)) func() {
	return c.moved.on(fn)
}

// OnVehicle subscribes to vehicle changes. The returned func unsubscribes.
func (c *Courier) OnVehicle(fn func(models.Vehicle)) func() {
	return c.vehicleEvent.on(fn)
}

// Name returns the courier's name.
func (c *Courier) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Phone returns the courier's phone number.
func (c *Courier) Phone() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phone
}

// PictureURL returns the courier's photo URL.
func (c *Courier) PictureURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pictureURL
}

// Vehicle returns the courier's vehicle, or nil if none was reported yet.
func (c *Courier) Vehicle() *models.Vehicle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vehicle
}

// Position returns the last known position and whether one was reported yet.
func (c *Courier) Position() (geo.Position, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position, c.hasPosition
}

// Update applies a partial patch from a poll: a location routes through
// SetLocation, a vehicle through SetVehicle, identity fields are assigned
// directly. Couriers can change mid-delivery, so every field is refreshed.
func (c *Courier) Update(payload CourierPayload) {
	c.mu.Lock()
	if payload.Name != "" {
		c.name = payload.Name
	}
	if payload.Phone != "" {
		c.phone = payload.Phone
	}
	if payload.PictureURL != "" {
		c.pictureURL = payload.PictureURL
	}
	c.mu.Unlock()

	if payload.Vehicle != nil {
		c.SetVehicle(*payload.Vehicle)
	}
	if payload.Location != nil {
		c.SetLocation(*payload.Location)
	}
}

// SetLocation records a real position update. A moved event fires only when
// the position actually changed, and the extrapolation timer restarts from
// the new fix; a real update always overrides synthesized motion.
func (c *Courier) SetLocation(pos geo.Position) {
	c.mu.Lock()
	c.stopExtrapolationLocked()

	changed := !c.hasPosition || !c.position.Equal(pos)
	c.position = pos
	c.hasPosition = true

	if c.extrapolate && !c.finished {
		c.startExtrapolationLocked()
	}
	c.mu.Unlock()

	if changed {
		c.moved.emit(pos)
	}
}

// SetVehicle normalizes and records the vehicle, emitting a vehicle event
// when it changed.
func (c *Courier) SetVehicle(v models.Vehicle) {
	normalized, err := models.NewVehicle(v)
	if err != nil {
		c.logger.Warn("ignoring invalid vehicle update", zap.Error(err))
		return
	}

	c.mu.Lock()
	changed := c.vehicle == nil || *c.vehicle != *normalized
	c.vehicle = normalized
	c.mu.Unlock()

	if changed {
		c.vehicleEvent.emit(*normalized)
	}
}

// Done clears the extrapolation timer and detaches all listeners. Safe to
// call multiple times.
func (c *Courier) Done() {
	c.mu.Lock()
	c.finished = true
	c.stopExtrapolationLocked()
	c.mu.Unlock()

	c.moved.removeAll()
	c.vehicleEvent.removeAll()
}

// startExtrapolationLocked synthesizes intermediate positions between polls by
// projecting travel along the current bearing at the assumed courier speed.
// Purely a presentation aid; the next real SetLocation discards it.
func (c *Courier) startExtrapolationLocked() {
	stop := make(chan struct{})
	c.extraStop = stop
	next := c.position

	go func() {
		ticker := time.NewTicker(extrapolationFrameInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				next = geo.DestinationPoint(next, courierSpeedMps*extrapolationFrameInterval.Seconds())
				c.moved.emit(next)
			}
		}
	}()
}

func (c *Courier) stopExtrapolationLocked() {
	if c.extraStop != nil {
		close(c.extraStop)
		c.extraStop = nil
	}
}
