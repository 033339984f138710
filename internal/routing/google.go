package routing

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/example/shuttle-tracker/internal/models"
)

// GoogleRouter backs Router with the Google Maps Directions and Distance
// Matrix APIs.
type GoogleRouter struct {
	client *maps.Client
}

func NewGoogleRouter(apiKey string) (*GoogleRouter, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GoogleRouter{client: client}, nil
}

func (g *GoogleRouter) GetRoute(ctx context.Context, origin, destination models.Coord, waypoints []models.Coord, optimizeWaypoints bool) (Route, error) {
	req := &maps.DirectionsRequest{
		Origin:      latLng(origin).String(),
		Destination: latLng(destination).String(),
		Mode:        maps.TravelModeDriving,
		Optimize:    optimizeWaypoints,
	}
	for _, w := range waypoints {
		req.Waypoints = append(req.Waypoints, latLng(w).String())
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return Route{}, fmt.Errorf("directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, fmt.Errorf("no route found")
	}

	r := routes[0]
	decoded, err := r.OverviewPolyline.Decode()
	if err != nil {
		return Route{}, fmt.Errorf("decode polyline: %w", err)
	}
	out := Route{WaypointOrder: r.WaypointOrder}
	for _, p := range decoded {
		out.Points = append(out.Points, models.Coord{Lat: p.Lat, Lon: p.Lng})
	}

	var meters int
	var dur time.Duration
	for _, leg := range r.Legs {
		meters += leg.Distance.Meters
		dur += leg.Duration
	}
	out.DistanceText = FormatDistance(float64(meters))
	out.DurationText = FormatDuration(dur)
	return out, nil
}

func (g *GoogleRouter) GetETA(ctx context.Context, origin, destination models.Coord) (Estimate, error) {
	resp, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(origin).String()},
		Destinations: []string{latLng(destination).String()},
		Mode:         maps.TravelModeDriving,
	})
	if err != nil {
		return Estimate{}, fmt.Errorf("distance matrix: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return Estimate{}, fmt.Errorf("empty distance matrix response")
	}
	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return Estimate{}, fmt.Errorf("distance matrix element status %s", el.Status)
	}
	return Estimate{
		DistanceText:    FormatDistance(float64(el.Distance.Meters)),
		DurationText:    FormatDuration(el.Duration),
		DurationSeconds: el.Duration.Seconds(),
		DistanceMeters:  float64(el.Distance.Meters),
	}, nil
}

func latLng(c models.Coord) *maps.LatLng {
	return &maps.LatLng{Lat: c.Lat, Lng: c.Lon}
}
