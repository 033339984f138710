package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/shuttle-tracker/internal/models"
)

// OSRMRouter targets a self-hosted OSRM server for installs without a
// Google Maps key. OSRM has no waypoint-optimization flag on /route, so
// optimizeWaypoints is ignored and the caller's order stands.
type OSRMRouter struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMRouter(endpoint string) *OSRMRouter {
	return &OSRMRouter{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRMRouter) GetRoute(ctx context.Context, origin, destination models.Coord, waypoints []models.Coord, _ bool) (Route, error) {
	coords := make([]string, 0, len(waypoints)+2)
	coords = append(coords, osrmCoord(origin))
	for _, w := range waypoints {
		coords = append(coords, osrmCoord(w))
	}
	coords = append(coords, osrmCoord(destination))
	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=geojson", o.Endpoint, strings.Join(coords, ";"))

	resp, err := o.query(ctx, url)
	if err != nil {
		return Route{}, err
	}
	r := resp.Routes[0]
	out := Route{
		DistanceText: FormatDistance(r.Distance),
		DurationText: FormatDuration(time.Duration(r.Duration * float64(time.Second))),
	}
	for _, c := range r.Geometry.Coordinates {
		if len(c) == 2 {
			// geojson is lon,lat
			out.Points = append(out.Points, models.Coord{Lat: c[1], Lon: c[0]})
		}
	}
	return out, nil
}

func (o *OSRMRouter) GetETA(ctx context.Context, origin, destination models.Coord) (Estimate, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%s;%s?overview=false", o.Endpoint, osrmCoord(origin), osrmCoord(destination))
	resp, err := o.query(ctx, url)
	if err != nil {
		return Estimate{}, err
	}
	r := resp.Routes[0]
	return Estimate{
		DistanceText:    FormatDistance(r.Distance),
		DurationText:    FormatDuration(time.Duration(r.Duration * float64(time.Second))),
		DurationSeconds: r.Duration,
		DistanceMeters:  r.Distance,
	}, nil
}

func (o *OSRMRouter) query(ctx context.Context, url string) (*osrmResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, fmt.Errorf("osrm no route: %v", out.Code)
	}
	return &out, nil
}

func osrmCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lon, c.Lat)
}
