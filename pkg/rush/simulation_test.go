package rush

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftrush/rush-go/pkg/transport"
)

// sandboxState is a stateful status store: simulation PUTs write it, status
// polls read it back, like the real sandbox does.
type sandboxState struct {
	mu     sync.Mutex
	status string
	puts   []string
}

func (s *sandboxState) install(api *fakeTransport, deliveryID string) {
	api.handle(http.MethodPut, "sandbox/deliveries/"+deliveryID, func(body interface{}) (*transport.Response, error) {
		patch := body.(map[string]string)
		s.mu.Lock()
		s.status = patch["status"]
		s.puts = append(s.puts, patch["status"])
		s.mu.Unlock()
		return jsonResponse(200, map[string]bool{"ok": true}), nil
	})
	api.handle(http.MethodGet, "deliveries/"+deliveryID, func(interface{}) (*transport.Response, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return jsonResponse(200, map[string]string{
			"delivery_id": deliveryID,
			"status":      s.status,
		}), nil
	})
}

func (s *sandboxState) putSequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := make([]string, len(s.puts))
	copy(seq, s.puts)
	return seq
}

func TestSimulation_DrivesDeliveryToCompletion(t *testing.T) {
	api := newFakeTransport()
	state := &sandboxState{status: "en_route_to_pickup"}
	state.install(api, "d1")

	d, err := newDelivery(api, nil, nil, 10*time.Millisecond, 30*time.Millisecond, false, DeliveryOptions{
		Pickup:  waypointPtr(seabringPickup()),
		Dropoff: waypointPtr(willoughbyDropoff()),
	})
	require.NoError(t, err)
	t.Cleanup(d.Complete)

	var mu sync.Mutex
	var seen []Status
	d.OnStatus(func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	confirmTestDelivery(t, api, d)

	assert.Eventually(t, func() bool {
		return d.Status() == StatusCompleted
	}, 5*time.Second, 10*time.Millisecond, "simulation should walk the delivery to completed")

	assert.Equal(t, SimulationSequence(), statusSlice(state.putSequence()),
		"sandbox receives the canonical progression in order")

	mu.Lock()
	sawDropoff := false
	for _, s := range seen {
		if s == StatusAtDropoff {
			sawDropoff = true
		}
	}
	mu.Unlock()
	assert.True(t, sawDropoff, "intermediate stages surface as status events")
}

func TestSimulation_StopsItselfAfterTerminalStatus(t *testing.T) {
	api := newFakeTransport()
	state := &sandboxState{status: "en_route_to_pickup"}
	state.install(api, "d1")

	d, err := newDelivery(api, nil, nil, 10*time.Millisecond, 30*time.Millisecond, false, DeliveryOptions{
		Pickup:  waypointPtr(seabringPickup()),
		Dropoff: waypointPtr(willoughbyDropoff()),
	})
	require.NoError(t, err)
	t.Cleanup(d.Complete)

	confirmTestDelivery(t, api, d)

	assert.Eventually(t, func() bool {
		return d.Status() == StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, d.Polling(), "terminal status stops polling")
	assert.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.simStop == nil
	}, 2*time.Second, 10*time.Millisecond, "driver clears itself once polling stops")
}

func TestSimulation_RestartReplacesDriver(t *testing.T) {
	api := newFakeTransport()
	d := newTestDelivery(t, api, time.Hour)
	confirmTestDelivery(t, api, d)

	d.simulate(time.Hour)
	d.mu.Lock()
	first := d.simStop
	d.mu.Unlock()
	require.NotNil(t, first)

	d.simulate(time.Hour)
	d.mu.Lock()
	second := d.simStop
	d.mu.Unlock()

	assert.NotEqual(t, first, second, "restarting installs a fresh driver")

	select {
	case <-first:
	default:
		t.Fatal("previous driver channel should be closed")
	}
}

func statusSlice(raw []string) []Status {
	statuses := make([]Status, len(raw))
	for i, s := range raw {
		statuses[i] = Status(s)
	}
	return statuses
}
