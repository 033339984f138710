package route

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/routing"
)

// Planner turns a driver position and pending pickups into road geometry:
// greedy order first, then the routing collaborator for the actual
// polyline and totals. When OptimizeWaypoints is set the provider may
// reorder the waypoints; its order wins for final geometry and the greedy
// order is only the initial proposal.
type Planner struct {
	Router            routing.Router
	OptimizeWaypoints bool
	CallTimeout       time.Duration
	Logger            *slog.Logger
}

// RoutedPlan couples the visit order with the road geometry fetched for it.
type RoutedPlan struct {
	Plan
	Geometry routing.Route
}

func (p *Planner) Route(ctx context.Context, origin models.Coord, pending []models.Passenger, destination *models.Coord) (RoutedPlan, error) {
	plan := Optimize(origin, pending, destination)
	out := RoutedPlan{Plan: plan}

	if len(plan.Order) == 0 && destination == nil {
		return out, nil
	}
	if p.Router == nil {
		// No provider wired: the visit order alone is still useful.
		return out, nil
	}

	waypoints := make([]models.Coord, 0, len(plan.Order))
	final := plan.LastPoint
	if destination != nil {
		for _, ps := range plan.Order {
			waypoints = append(waypoints, *ps.Pickup)
		}
	} else {
		// No fixed destination: the last pickup closes the route.
		for _, ps := range plan.Order[:len(plan.Order)-1] {
			waypoints = append(waypoints, *ps.Pickup)
		}
	}

	timeout := p.CallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	geom, err := p.Router.GetRoute(rctx, origin, final, waypoints, p.OptimizeWaypoints)
	if err != nil {
		return out, fmt.Errorf("fetch route geometry: %w", err)
	}
	out.Geometry = geom

	// WaypointOrder covers only the intermediate waypoints; when there is
	// no fixed destination the last pickup is the route end and stays last.
	if n := len(geom.WaypointOrder); n > 0 && n == len(waypoints) {
		reordered := make([]models.Passenger, 0, len(plan.Order))
		for _, idx := range geom.WaypointOrder {
			if idx < 0 || idx >= len(waypoints) {
				p.logger().Warn("provider waypoint index out of range", "index", idx)
				return out, nil
			}
			reordered = append(reordered, plan.Order[idx])
		}
		reordered = append(reordered, plan.Order[len(waypoints):]...)
		out.Order = reordered
	}
	return out, nil
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
