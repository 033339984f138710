package routing

import (
	"context"

	"github.com/example/shuttle-tracker/internal/models"
)

// Route is road geometry plus human-readable totals for an ordered
// waypoint sequence.
type Route struct {
	Points       []models.Coord
	DistanceText string
	DurationText string
	// WaypointOrder is the provider's own reordering of the supplied
	// waypoints when optimization was requested; empty means the input
	// order stands.
	WaypointOrder []int
}

// Estimate is a single-leg travel estimate.
type Estimate struct {
	DistanceText    string
	DurationText    string
	DurationSeconds float64
	DistanceMeters  float64
}

// Router is the road-routing collaborator. Implementations must respect
// ctx deadlines; callers always have a fallback and never wait
// indefinitely.
type Router interface {
	GetRoute(ctx context.Context, origin, destination models.Coord, waypoints []models.Coord, optimizeWaypoints bool) (Route, error)
	GetETA(ctx context.Context, origin, destination models.Coord) (Estimate, error)
}

// Geocoder resolves addresses; callers hold requests to at most one per
// second.
type Geocoder interface {
	Forward(ctx context.Context, address string) (models.Coord, error)
	Reverse(ctx context.Context, c models.Coord) (string, error)
}
