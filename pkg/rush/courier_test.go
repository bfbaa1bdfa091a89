package rush

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swiftrush/rush-go/pkg/geo"
	"github.com/swiftrush/rush-go/pkg/models"
)

func newTestCourier(extrapolate bool) *Courier {
	return NewCourier(CourierPayload{
		Name:  "Rob",
		Phone: "+12155551212",
		Location: &geo.Position{
			Latitude:  40.70,
			Longitude: -74.00,
			Bearing:   0,
		},
	}, extrapolate, zap.NewNop())
}

// movedRecorder collects moved events behind a mutex so timer goroutines can
// append safely.
type movedRecorder struct {
	mu        sync.Mutex
	positions []geo.Position
}

func (r *movedRecorder) record(pos geo.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, pos)
}

func (r *movedRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positions)
}

func TestNewCourier_InitialPositionDoesNotEmit(t *testing.T) {
	recorder := &movedRecorder{}

	courier := newTestCourier(false)
	courier.OnMoved(recorder.record)

	pos, ok := courier.Position()
	assert.True(t, ok)
	assert.Equal(t, 40.70, pos.Latitude)
	assert.Equal(t, 0, recorder.count(), "construction should not emit moved")
}

func TestCourierUpdate_IdempotentUnderIdenticalPatches(t *testing.T) {
	recorder := &movedRecorder{}

	courier := newTestCourier(false)
	courier.OnMoved(recorder.record)

	patch := CourierPayload{
		Location: &geo.Position{Latitude: 40.70, Longitude: -74.00, Bearing: 0},
	}

	courier.Update(patch)
	courier.Update(patch)

	// The position matches the construction position, so neither patch is a
	// real movement.
	assert.Equal(t, 0, recorder.count(), "identical patches must not emit moved")
}

func TestCourierUpdate_EmitsOnRealMovement(t *testing.T) {
	recorder := &movedRecorder{}

	courier := newTestCourier(false)
	courier.OnMoved(recorder.record)

	courier.Update(CourierPayload{
		Location: &geo.Position{Latitude: 40.71, Longitude: -74.00, Bearing: 10},
	})
	courier.Update(CourierPayload{
		Location: &geo.Position{Latitude: 40.71, Longitude: -74.00, Bearing: 10},
	})

	require.Equal(t, 1, recorder.count(), "only the first patch moves the courier")
	assert.Equal(t, 40.71, recorder.positions[0].Latitude)
}

func TestCourierUpdate_PatchesIdentityFields(t *testing.T) {
	courier := newTestCourier(false)

	courier.Update(CourierPayload{Name: "Dana", Phone: "+12125550000"})

	assert.Equal(t, "Dana", courier.Name())
	assert.Equal(t, "+12125550000", courier.Phone())

	// Fields absent from the patch are preserved
	courier.Update(CourierPayload{Phone: "+13475550000"})
	assert.Equal(t, "Dana", courier.Name())
}

func TestCourierSetVehicle_EmitsOnlyOnChange(t *testing.T) {
	var events []models.Vehicle
	var mu sync.Mutex

	courier := newTestCourier(false)
	courier.OnVehicle(func(v models.Vehicle) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, v)
	})

	vehicle := models.Vehicle{LicensePlate: "RUSHNYC", Make: "Acura", Model: "ZDX"}
	courier.SetVehicle(vehicle)
	courier.SetVehicle(vehicle)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1, "unchanged vehicle must not re-emit")
	assert.Equal(t, "RUSHNYC", events[0].LicensePlate)
}

func TestCourierExtrapolation_SynthesizesMovement(t *testing.T) {
	recorder := &movedRecorder{}

	courier := newTestCourier(true)
	courier.OnMoved(recorder.record)

	// A real fix restarts the extrapolation timer
	courier.SetLocation(geo.Position{Latitude: 40.71, Longitude: -74.00, Bearing: 0})

	assert.Eventually(t, func() bool {
		return recorder.count() >= 2
	}, 5*time.Second, 50*time.Millisecond, "extrapolation should emit synthetic positions")

	// Synthetic positions move north along the bearing
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	last := recorder.positions[len(recorder.positions)-1]
	assert.Greater(t, last.Latitude, 40.71)

	courier.Done()
}

func TestCourierDone_Idempotent(t *testing.T) {
	recorder := &movedRecorder{}

	courier := newTestCourier(true)
	courier.OnMoved(recorder.record)
	courier.SetLocation(geo.Position{Latitude: 40.71, Longitude: -74.00, Bearing: 0})

	courier.Done()
	courier.Done()

	count := recorder.count()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, count, recorder.count(), "no events after Done")

	// A real update after Done must not restart extrapolation
	courier.SetLocation(geo.Position{Latitude: 40.72, Longitude: -74.00, Bearing: 0})
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, count, recorder.count())
}
