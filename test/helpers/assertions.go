package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swiftrush/rush-go/pkg/geo"
	"github.com/swiftrush/rush-go/pkg/models"
)

// AssertWaypointEqual asserts that two waypoints describe the same stop
// (ETA excluded; the backend rewrites it continuously)
func AssertWaypointEqual(t *testing.T, expected, actual *models.Waypoint) {
	if expected == nil || actual == nil {
		assert.Equal(t, expected, actual)
		return
	}
	assert.Equal(t, expected.Contact, actual.Contact)
	assert.Equal(t, expected.Location, actual.Location)
	assert.Equal(t, expected.SignatureRequired, actual.SignatureRequired)
	assert.Equal(t, expected.SpecialInstructions, actual.SpecialInstructions)
}

// AssertPositionNear asserts that two positions are within tolerance meters
// of each other
func AssertPositionNear(t *testing.T, expected, actual geo.Position, toleranceMeters float64) {
	distance := geo.Distance(expected.Latitude, expected.Longitude, actual.Latitude, actual.Longitude)
	assert.LessOrEqual(t, distance, toleranceMeters,
		"positions %.6f,%.6f and %.6f,%.6f are %.1fm apart",
		expected.Latitude, expected.Longitude, actual.Latitude, actual.Longitude, distance)
}

// AssertQuoteUsable asserts that a quote carries everything needed to confirm
func AssertQuoteUsable(t *testing.T, quote *models.Quote) {
	assert.NotEmpty(t, quote.QuoteID)
	assert.Greater(t, quote.Fee, 0.0)
	assert.NotEmpty(t, quote.CurrencyCode)
}
