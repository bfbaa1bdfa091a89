package geo

import "math"

const earthRadiusMeters = 6371000.0

// Position is a courier position on the map. Bearing is in degrees clockwise
// from north and drives motion extrapolation between real updates.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Bearing   float64 `json:"bearing"`
}

// Equal reports whether two positions describe the same point and heading.
func (p Position) Equal(other Position) bool {
	return p.Latitude == other.Latitude &&
		p.Longitude == other.Longitude &&
		p.Bearing == other.Bearing
}

// Distance calculates the haversine distance between two coordinates in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// DestinationPoint projects travel from p along its bearing for the given
// distance in meters and returns the resulting position. The bearing is
// preserved so repeated projections continue along the same heading.
func DestinationPoint(p Position, distanceMeters float64) Position {
	angular := distanceMeters / earthRadiusMeters
	bearing := p.Bearing * math.Pi / 180.0

	lat1 := p.Latitude * math.Pi / 180.0
	lon1 := p.Longitude * math.Pi / 180.0

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2),
	)

	// Normalize longitude to -180..+180
	lon2 = math.Mod(lon2+3*math.Pi, 2*math.Pi) - math.Pi

	return Position{
		Latitude:  lat2 * 180.0 / math.Pi,
		Longitude: lon2 * 180.0 / math.Pi,
		Bearing:   p.Bearing,
	}
}

// ETAMinutes calculates an estimated time of arrival in minutes for the given
// distance in meters at the given speed in meters per second.
func ETAMinutes(distanceMeters, speedMps float64) int {
	if speedMps <= 0 {
		return 0
	}
	return int(math.Round(distanceMeters / speedMps / 60.0))
}
