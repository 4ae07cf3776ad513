package geo

import (
	"math"
	"testing"

	"github.com/tedtam/fieldops/internal/store"
)

func TestDistanceKnownPair(t *testing.T) {
	// Bangkok (Victory Monument area) to Chiang Mai is roughly 580 km.
	d := Distance(13.7563, 100.5018, 18.7883, 98.9853)
	if d < 550 || d > 620 {
		t.Fatalf("Bangkok-Chiang Mai distance out of range: %.1f km", d)
	}
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	d := Distance(13.7563, 100.5018, 13.7563, 100.5018)
	if math.Abs(d) > 1e-9 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestCoordinatesDefaultsToCentroid(t *testing.T) {
	lat, lng := Coordinates(store.Customer{})
	if lat != DefaultLatitude || lng != DefaultLongitude {
		t.Fatalf("expected centroid default, got (%v, %v)", lat, lng)
	}

	lat, lng = Coordinates(store.Customer{Latitude: 18.78, Longitude: 98.98})
	if lat != 18.78 || lng != 98.98 {
		t.Fatalf("explicit coordinates overridden: (%v, %v)", lat, lng)
	}
}

func TestNearestOrdersAndLimits(t *testing.T) {
	records := []store.Customer{
		{ID: "far", Latitude: 18.7883, Longitude: 98.9853},   // Chiang Mai
		{ID: "near", Latitude: 13.7466, Longitude: 100.5331}, // central Bangkok
		{ID: "mid", Latitude: 14.9799, Longitude: 102.0978},  // Korat
	}

	got := Nearest(records, DefaultLatitude, DefaultLongitude, 0)
	if len(got) != 3 {
		t.Fatalf("expected all 3, got %d", len(got))
	}
	want := []string{"near", "mid", "far"}
	for i, w := range want {
		if got[i].Customer.ID != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, got[i].Customer.ID)
		}
	}

	top := Nearest(records, DefaultLatitude, DefaultLongitude, 2)
	if len(top) != 2 || top[0].Customer.ID != "near" {
		t.Fatalf("limit 2: got %d (first %s)", len(top), top[0].Customer.ID)
	}
}
