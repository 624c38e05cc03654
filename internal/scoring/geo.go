package scoring

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points given in
// decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	a := sinLat*sinLat +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*sinLon*sinLon

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidateCoordinates rejects NaN, infinite and out-of-range coordinates.
func ValidateCoordinates(field string, lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return &InvalidInputError{Field: field, Reason: fmt.Sprintf("latitude %v out of range [-90, 90]", lat)}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return &InvalidInputError{Field: field, Reason: fmt.Sprintf("longitude %v out of range [-180, 180]", lon)}
	}
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
