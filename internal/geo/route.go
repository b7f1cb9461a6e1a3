package geo

// Stop is a geographic point to visit in route sequencing.
type Stop struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// Sequence orders stops into a visiting sequence using the greedy
// nearest-neighbor heuristic: starting from origin, repeatedly visit the
// closest unvisited stop. When destination is non-nil it is appended as a
// forced final stop and never influences the ordering of the others.
//
// The output is always a permutation of stops (plus the optional trailing
// destination). Ties pick the first candidate in input order, so identical
// inputs always give identical sequences. The walk is O(n²), a deliberate
// simplicity trade-off over an optimal tour; stop counts are small (a few
// pharmacies per order).
func Sequence(origin Stop, stops []Stop, destination *Stop) []Stop {
	remaining := make([]Stop, len(stops))
	copy(remaining, stops)

	ordered := make([]Stop, 0, len(stops)+1)
	current := origin
	for len(remaining) > 0 {
		best := 0
		bestDist := DistanceKm(current.Lat, current.Lng, remaining[0].Lat, remaining[0].Lng)
		for i := 1; i < len(remaining); i++ {
			d := DistanceKm(current.Lat, current.Lng, remaining[i].Lat, remaining[i].Lng)
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		current = remaining[best]
		ordered = append(ordered, current)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	if destination != nil {
		ordered = append(ordered, *destination)
	}
	return ordered
}

// TotalKm returns the length of the route that starts at origin and visits
// stops in the given order. Used to price the delivery fee.
func TotalKm(origin Stop, stops []Stop) float64 {
	total := 0.0
	current := origin
	for _, s := range stops {
		total += DistanceKm(current.Lat, current.Lng, s.Lat, s.Lng)
		current = s
	}
	return total
}
