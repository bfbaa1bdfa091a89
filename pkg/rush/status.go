package rush

// Status represents the lifecycle of a delivery as reported by the backend.
type Status string

const (
	StatusUnknown             Status = "unknown"              // Backend omitted the status
	StatusEnRouteToPickup     Status = "en_route_to_pickup"   // Courier heading to pickup
	StatusAtPickup            Status = "at_pickup"            // Courier at the pickup location
	StatusEnRouteToDropoff    Status = "en_route_to_dropoff"  // Package on the way
	StatusAtDropoff           Status = "at_dropoff"           // Courier at the dropoff location
	StatusCompleted           Status = "completed"            // Package handed over
	StatusReturned            Status = "returned"             // Package returned to sender
	StatusClientCanceled      Status = "client_canceled"      // Canceled by the caller
	StatusNoCouriersAvailable Status = "no_couriers_available" // No courier could be dispatched
	StatusUnableToDeliver     Status = "unable_to_deliver"    // Courier could not complete
)

// terminalStatuses are the statuses after which no further state changes are
// expected and tracking stops.
var terminalStatuses = map[Status]bool{
	StatusCompleted:           true,
	StatusReturned:            true,
	StatusClientCanceled:      true,
	StatusNoCouriersAvailable: true,
	StatusUnableToDeliver:     true,
}

// Terminal reports whether the status ends the delivery lifecycle.
func (s Status) Terminal() bool {
	return terminalStatuses[s]
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a wire-level status string, falling back to
// StatusUnknown when the backend omits it.
func ParseStatus(raw string) Status {
	if raw == "" {
		return StatusUnknown
	}
	return Status(raw)
}

// SimulationSequence returns the canonical progression of statuses a
// successful delivery walks through; the simulation driver advances the
// sandbox through these one step at a time.
func SimulationSequence() []Status {
	return []Status{
		StatusEnRouteToPickup,
		StatusAtPickup,
		StatusEnRouteToDropoff,
		StatusAtDropoff,
		StatusCompleted,
	}
}
