package geo

import (
	"reflect"
	"testing"
)

func TestSequence_NearestFirst(t *testing.T) {
	origin := Stop{Lat: 0, Lng: 0}
	stops := []Stop{
		{Lat: 0, Lng: 10, Label: "far"},
		{Lat: 0, Lng: 1, Label: "near"},
		{Lat: 0, Lng: 5, Label: "mid"},
	}
	got := Sequence(origin, stops, nil)
	want := []Stop{
		{Lat: 0, Lng: 1, Label: "near"},
		{Lat: 0, Lng: 5, Label: "mid"},
		{Lat: 0, Lng: 10, Label: "far"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
}

func TestSequence_DestinationAlwaysLast(t *testing.T) {
	origin := Stop{Lat: 0, Lng: 0}
	stops := []Stop{
		{Lat: 0, Lng: 2, Label: "b"},
		{Lat: 0, Lng: 1, Label: "a"},
	}
	// Destination sits between origin and the stops; it must still be last.
	dest := &Stop{Lat: 0, Lng: 0.5, Label: "home"}
	got := Sequence(origin, stops, dest)
	if len(got) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(got))
	}
	if got[2].Label != "home" {
		t.Fatalf("destination not last: %v", got)
	}
	if got[0].Label != "a" || got[1].Label != "b" {
		t.Fatalf("stops out of order: %v", got)
	}
}

func TestSequence_Permutation(t *testing.T) {
	origin := Stop{Lat: 45, Lng: 5}
	stops := []Stop{
		{Lat: 45.1, Lng: 5.0, Label: "p1"},
		{Lat: 44.9, Lng: 5.2, Label: "p2"},
		{Lat: 45.0, Lng: 4.8, Label: "p3"},
		{Lat: 45.3, Lng: 5.1, Label: "p4"},
		{Lat: 44.8, Lng: 4.9, Label: "p5"},
	}
	got := Sequence(origin, stops, nil)
	if len(got) != len(stops) {
		t.Fatalf("expected %d stops, got %d", len(stops), len(got))
	}
	seen := map[string]int{}
	for _, s := range got {
		seen[s.Label]++
	}
	for _, s := range stops {
		if seen[s.Label] != 1 {
			t.Fatalf("stop %q appears %d times", s.Label, seen[s.Label])
		}
	}
}

func TestSequence_Deterministic(t *testing.T) {
	origin := Stop{Lat: 0, Lng: 0}
	// Two equidistant candidates; the first in input order must win, every time.
	stops := []Stop{
		{Lat: 0, Lng: 1, Label: "first"},
		{Lat: 0, Lng: -1, Label: "second"},
	}
	for i := 0; i < 5; i++ {
		got := Sequence(origin, stops, nil)
		if got[0].Label != "first" {
			t.Fatalf("tie-break not stable on run %d: %v", i, got)
		}
	}
}

func TestSequence_EmptyAndSingle(t *testing.T) {
	origin := Stop{Lat: 1, Lng: 1}
	if got := Sequence(origin, nil, nil); len(got) != 0 {
		t.Fatalf("empty stops expected empty sequence, got %v", got)
	}
	only := Stop{Lat: 2, Lng: 2, Label: "only"}
	got := Sequence(origin, []Stop{only}, nil)
	if len(got) != 1 || got[0] != only {
		t.Fatalf("single stop expected [only], got %v", got)
	}
	// Empty stops with a destination returns just the destination.
	dest := &Stop{Lat: 3, Lng: 3, Label: "dest"}
	got = Sequence(origin, nil, dest)
	if len(got) != 1 || got[0] != *dest {
		t.Fatalf("expected [dest], got %v", got)
	}
}

func TestTotalKm(t *testing.T) {
	origin := Stop{Lat: 0, Lng: 0}
	stops := []Stop{{Lat: 0, Lng: 1}, {Lat: 0, Lng: 2}}
	total := TotalKm(origin, stops)
	direct := DistanceKm(0, 0, 0, 1) + DistanceKm(0, 1, 0, 2)
	if total != direct {
		t.Fatalf("TotalKm = %v, want %v", total, direct)
	}
	if TotalKm(origin, nil) != 0 {
		t.Fatalf("empty route should have zero length")
	}
}
