package route

import (
	"github.com/example/shuttle-tracker/internal/geo"
	"github.com/example/shuttle-tracker/internal/models"
)

// Plan is the visit order produced for one optimization pass. It is
// derived state, recomputed fresh each pass and never persisted.
type Plan struct {
	Order     []models.Passenger
	LastPoint models.Coord
}

// Optimize orders pending pickups greedy nearest-neighbor by haversine:
// from origin, repeatedly take the closest unvisited pickup and advance to
// it. Equidistant candidates resolve to the earlier roster index
// (first-minimum-wins), which keeps the result deterministic for a fixed
// input. This is a heuristic; it does not backtrack and can lose to true
// TSP optimality.
//
// A fixed destination is appended after all pickups; it never competes for
// the "next" slot. With zero pickups the order is empty and LastPoint is
// the origin, or the destination when one is set.
//
// Every pending passenger must carry a pickup coordinate; PendingPickups
// filters out those without one.
func Optimize(origin models.Coord, pending []models.Passenger, destination *models.Coord) Plan {
	order := make([]models.Passenger, 0, len(pending))
	remaining := append([]models.Passenger(nil), pending...)
	cur := origin

	for len(remaining) > 0 {
		best := 0
		bestDist := geo.Distance(cur, *remaining[0].Pickup)
		for i := 1; i < len(remaining); i++ {
			if d := geo.Distance(cur, *remaining[i].Pickup); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := remaining[best]
		order = append(order, next)
		cur = *next.Pickup
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	last := cur
	if destination != nil {
		last = *destination
	}
	return Plan{Order: order, LastPoint: last}
}
