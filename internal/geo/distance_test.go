package geo

import (
	"math"
	"testing"
)

func TestDistanceKm_ZeroForIdenticalPoints(t *testing.T) {
	d := DistanceKm(48.8566, 2.3522, 48.8566, 2.3522)
	if d != 0 {
		t.Fatalf("identical points expected 0, got %v", d)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{48.8566, 2.3522, 45.7640, 4.8357}, // Paris <-> Lyon
		{0, 0, 10, 10},
		{-33.8688, 151.2093, 51.5074, -0.1278},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("asymmetric distance for %v: %v vs %v", p, ab, ba)
		}
		if ab < 0 {
			t.Fatalf("negative distance for %v: %v", p, ab)
		}
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Paris to Lyon is roughly 392 km great-circle.
	d := DistanceKm(48.8566, 2.3522, 45.7640, 4.8357)
	if d < 380 || d > 405 {
		t.Fatalf("Paris-Lyon distance out of range: %v", d)
	}
}

func TestDistanceKm_OneDegreeAtEquator(t *testing.T) {
	// One degree of latitude is ~111.2 km.
	d := DistanceKm(0, 0, 1, 0)
	if math.Abs(d-111.19) > 0.5 {
		t.Fatalf("one degree latitude expected ~111.19 km, got %v", d)
	}
}
