package models

// Location is a street address for a pickup or dropoff.
type Location struct {
	Address    string `json:"address" validate:"required"`
	Address2   string `json:"address_2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// NewLocation validates and returns a location. Country, when present, must be
// a two-letter ISO code.
func NewLocation(loc Location) (*Location, error) {
	if err := checkStruct(loc); err != nil {
		return nil, err
	}
	return &loc, nil
}
