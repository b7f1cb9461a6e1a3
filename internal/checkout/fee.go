package checkout

// FeeSchedule prices the delivery of an order from the length of its route:
// a flat base fee plus a per-kilometre rate.
type FeeSchedule struct {
	Base  float64
	PerKm float64
}

// For returns the delivery fee for a route of the given length.
func (f FeeSchedule) For(distanceKm float64) float64 {
	if distanceKm < 0 {
		distanceKm = 0
	}
	return f.Base + f.PerKm*distanceKm
}
