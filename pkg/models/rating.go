package models

import (
	"errors"
	"fmt"
	"math"
)

// Rating types accepted by the ratings endpoint.
const (
	RatingTypeBinary     = "binary"
	RatingTypeFivePoints = "five_points"
)

// Waypoint names accepted by the ratings endpoint.
const (
	WaypointPickup  = "pickup"
	WaypointDropoff = "dropoff"
)

var (
	// ErrBinaryRating is returned when a binary rating value is not 0 or 1.
	ErrBinaryRating = errors.New("binary rating must be 0 or 1")

	// ErrFivePointsRating is returned when a five-points rating value is not
	// an integer between 1 and 5.
	ErrFivePointsRating = errors.New("five points rating must be 1, 2, 3, 4 or 5")
)

// Rating is a caller-supplied rating for a completed delivery. Value accepts
// booleans and loosely typed numbers; Normalize coerces them to the integer
// the API expects.
type Rating struct {
	Waypoint string      `json:"waypoint"`
	Type     string      `json:"rating_type"`
	Value    interface{} `json:"rating_value"`
	Tags     []string    `json:"tags"`
}

// RatingPayload is the validated wire shape of a rating.
type RatingPayload struct {
	Waypoint    string   `json:"waypoint" validate:"required,oneof=pickup dropoff"`
	RatingType  string   `json:"rating_type" validate:"required,oneof=binary five_points"`
	RatingValue int      `json:"rating_value"`
	Tags        []string `json:"tags"`
}

// Normalize validates the rating and coerces its value into the wire payload.
// Binary ratings accept 0, 1, true and false; five-points ratings accept
// integers 1 through 5.
func (r Rating) Normalize() (*RatingPayload, error) {
	payload := &RatingPayload{
		Waypoint:   r.Waypoint,
		RatingType: r.Type,
		Tags:       r.Tags,
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}

	if err := checkStruct(payload); err != nil {
		return nil, err
	}

	value, ok := intValue(r.Value)

	switch r.Type {
	case RatingTypeBinary:
		if b, isBool := r.Value.(bool); isBool {
			value = 0
			if b {
				value = 1
			}
			ok = true
		}
		if !ok || (value != 0 && value != 1) {
			return nil, ErrBinaryRating
		}
	case RatingTypeFivePoints:
		if !ok || value < 1 || value > 5 {
			return nil, ErrFivePointsRating
		}
	}

	payload.RatingValue = value
	return payload, nil
}

// intValue coerces loosely typed numeric input into an int. Floats only
// convert when they carry no fractional part.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case float32:
		return intValue(float64(n))
	default:
		return 0, false
	}
}

// String implements fmt.Stringer for debug logging.
func (r Rating) String() string {
	return fmt.Sprintf("rating{waypoint=%s type=%s value=%v}", r.Waypoint, r.Type, r.Value)
}
