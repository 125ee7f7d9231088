package geo

import (
	"math"
	"testing"

	"github.com/five82/tanker/internal/models"
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	p := models.Coordinates{Latitude: 24.7, Longitude: 46.7}
	if d := HaversineKm(p, p); d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineKm_OneDegreeOfLatitude(t *testing.T) {
	a := models.Coordinates{Latitude: 0, Longitude: 0}
	b := models.Coordinates{Latitude: 1, Longitude: 0}
	// One degree along a meridian is ~111.2 km.
	if d := HaversineKm(a, b); math.Abs(d-111.19) > 0.1 {
		t.Fatalf("HaversineKm = %v, want ~111.19", d)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := models.Coordinates{Latitude: 51.5, Longitude: -0.12}
	b := models.Coordinates{Latitude: 48.85, Longitude: 2.35}
	if math.Abs(HaversineKm(a, b)-HaversineKm(b, a)) > 1e-9 {
		t.Fatal("distance is not symmetric")
	}
}

func TestWithinKm(t *testing.T) {
	a := models.Coordinates{Latitude: 0, Longitude: 0}
	near := models.Coordinates{Latitude: 0, Longitude: 0.001}
	far := models.Coordinates{Latitude: 1, Longitude: 1}
	if !WithinKm(a, near, 1) {
		t.Fatal("expected near point within 1 km")
	}
	if WithinKm(a, far, 1) {
		t.Fatal("expected far point outside 1 km")
	}
}
