package geo

import "math"

// EarthRadiusKm is Earth's radius in kilometres for the Haversine calculation.
const EarthRadiusKm = 6371.0

// DistanceKm calculates the great-circle distance between two points on
// Earth in kilometres using the Haversine formula. It is symmetric and
// returns 0 for identical points. Invalid coordinates are the caller's
// responsibility; NaN propagates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}
