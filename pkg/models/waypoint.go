package models

// Waypoint is a configured pickup or dropoff: where to go and whom to meet.
// ETA is set by the backend once a delivery is underway and is nil before
// confirmation.
type Waypoint struct {
	Contact             *Contact  `json:"contact,omitempty"`
	Location            *Location `json:"location,omitempty"`
	SignatureRequired   bool      `json:"signature_required,omitempty"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
	ETA                 *int      `json:"eta,omitempty"`
}

// NewWaypoint validates the nested contact and location and returns the
// waypoint. A waypoint used for quoting or confirmation must carry a location.
func NewWaypoint(w Waypoint) (*Waypoint, error) {
	if w.Location != nil {
		loc, err := NewLocation(*w.Location)
		if err != nil {
			return nil, err
		}
		w.Location = loc
	}

	if w.Contact != nil {
		contact, err := NewContact(*w.Contact)
		if err != nil {
			return nil, err
		}
		w.Contact = contact
	}

	return &w, nil
}

// HasLocation reports whether the waypoint is usable for quoting, i.e. it
// carries a street address.
func (w *Waypoint) HasLocation() bool {
	return w != nil && w.Location != nil && w.Location.Address != ""
}

// SetETA updates the waypoint's estimated arrival in minutes.
func (w *Waypoint) SetETA(minutes int) {
	w.ETA = &minutes
}
