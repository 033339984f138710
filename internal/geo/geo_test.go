package geo

import (
	"math"
	"testing"

	"github.com/example/shuttle-tracker/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is ~111.2 km
	d := Haversine(0, 0, 1, 0)
	if math.Abs(d-111195) > 200 {
		t.Fatalf("expected ~111195m, got %f", d)
	}
}

func TestPathDistanceSumsLegs(t *testing.T) {
	origin := models.Coord{Lat: 0, Lon: 0}
	pts := []models.Coord{{Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}}
	got := PathDistance(origin, pts)
	want := Distance(origin, pts[0]) + Distance(pts[0], pts[1])
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestValidCoord(t *testing.T) {
	if !ValidCoord(41.01, 28.90) {
		t.Fatal("expected valid")
	}
	if ValidCoord(91, 0) || ValidCoord(0, 181) || ValidCoord(-91, 0) {
		t.Fatal("expected out-of-range coordinates to be invalid")
	}
}
