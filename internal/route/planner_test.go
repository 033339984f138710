package route

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/routing"
)

type fakeRouter struct {
	route   routing.Route
	err     error
	lastReq struct {
		origin, destination models.Coord
		waypoints           []models.Coord
		optimize            bool
	}
}

func (f *fakeRouter) GetRoute(_ context.Context, origin, destination models.Coord, waypoints []models.Coord, optimize bool) (routing.Route, error) {
	f.lastReq.origin = origin
	f.lastReq.destination = destination
	f.lastReq.waypoints = waypoints
	f.lastReq.optimize = optimize
	return f.route, f.err
}

func (f *fakeRouter) GetETA(context.Context, models.Coord, models.Coord) (routing.Estimate, error) {
	return routing.Estimate{}, errors.New("unused")
}

func TestPlannerSendsGreedyOrderAsWaypoints(t *testing.T) {
	fr := &fakeRouter{route: routing.Route{DistanceText: "5.0 km"}}
	p := &Planner{Router: fr}
	origin := models.Coord{Lat: 0, Lon: 0}
	dest := models.Coord{Lat: 0, Lon: 10}
	pending := []models.Passenger{
		pickup("far", 0, 2),
		pickup("near", 0, 1),
	}

	plan, err := p.Route(context.Background(), origin, pending, &dest)
	if err != nil {
		t.Fatal(err)
	}
	wantWaypoints := []models.Coord{{Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}}
	if !reflect.DeepEqual(fr.lastReq.waypoints, wantWaypoints) {
		t.Fatalf("expected greedy waypoints %v, got %v", wantWaypoints, fr.lastReq.waypoints)
	}
	if fr.lastReq.destination != dest {
		t.Fatalf("expected fixed destination %v, got %v", dest, fr.lastReq.destination)
	}
	if plan.Geometry.DistanceText != "5.0 km" {
		t.Fatalf("geometry not propagated: %+v", plan.Geometry)
	}
}

func TestPlannerProviderReorderWins(t *testing.T) {
	fr := &fakeRouter{route: routing.Route{WaypointOrder: []int{1, 0}}}
	p := &Planner{Router: fr, OptimizeWaypoints: true}
	origin := models.Coord{Lat: 0, Lon: 0}
	dest := models.Coord{Lat: 0, Lon: 10}
	pending := []models.Passenger{
		pickup("b", 0, 2),
		pickup("a", 0, 1),
	}

	plan, err := p.Route(context.Background(), origin, pending, &dest)
	if err != nil {
		t.Fatal(err)
	}
	// greedy proposes [a b]; the provider reorders to [b a]
	if got := orderIDs(plan.Plan); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("provider order must take precedence, got %v", got)
	}
	if !fr.lastReq.optimize {
		t.Fatal("optimize flag not forwarded")
	}
}

func TestPlannerNoDestinationLastPickupClosesRoute(t *testing.T) {
	fr := &fakeRouter{}
	p := &Planner{Router: fr}
	origin := models.Coord{Lat: 0, Lon: 0}
	pending := []models.Passenger{
		pickup("last", 0, 2),
		pickup("first", 0, 1),
	}

	if _, err := p.Route(context.Background(), origin, pending, nil); err != nil {
		t.Fatal(err)
	}
	if fr.lastReq.destination != (models.Coord{Lat: 0, Lon: 2}) {
		t.Fatalf("expected final pickup as route end, got %v", fr.lastReq.destination)
	}
	if len(fr.lastReq.waypoints) != 1 {
		t.Fatalf("expected a single intermediate waypoint, got %v", fr.lastReq.waypoints)
	}
}

func TestPlannerGeometryFailureKeepsOrder(t *testing.T) {
	fr := &fakeRouter{err: errors.New("provider down")}
	p := &Planner{Router: fr}
	origin := models.Coord{Lat: 0, Lon: 0}
	pending := []models.Passenger{pickup("a", 0, 1)}

	plan, err := p.Route(context.Background(), origin, pending, nil)
	if err == nil {
		t.Fatal("expected geometry error to surface")
	}
	if got := orderIDs(plan.Plan); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("visit order must survive a geometry failure, got %v", got)
	}
}

func TestPlannerEmptyPendingNoDestinationSkipsProvider(t *testing.T) {
	fr := &fakeRouter{}
	p := &Planner{Router: fr}
	origin := models.Coord{Lat: 1, Lon: 1}
	plan, err := p.Route(context.Background(), origin, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Order) != 0 || plan.LastPoint != origin {
		t.Fatalf("unexpected plan %+v", plan)
	}
}
