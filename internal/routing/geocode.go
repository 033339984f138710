package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"googlemaps.github.io/maps"

	"github.com/example/shuttle-tracker/internal/models"
)

// GoogleGeocoder resolves addresses through the Google Geocoding API. The
// free tier tolerates at most one request per second, so the limiter here
// spaces calls on the caller side rather than trusting upstream throttling.
type GoogleGeocoder struct {
	client *maps.Client

	mu   sync.Mutex
	last time.Time
	gap  time.Duration
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GoogleGeocoder{client: client, gap: time.Second}, nil
}

func (g *GoogleGeocoder) Forward(ctx context.Context, address string) (models.Coord, error) {
	if err := g.throttle(ctx); err != nil {
		return models.Coord{}, err
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return models.Coord{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return models.Coord{}, fmt.Errorf("no geocode result for %q", address)
	}
	loc := results[0].Geometry.Location
	return models.Coord{Lat: loc.Lat, Lon: loc.Lng}, nil
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, c models.Coord) (string, error) {
	if err := g.throttle(ctx); err != nil {
		return "", err
	}
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: c.Lat, Lng: c.Lon},
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no reverse geocode result")
	}
	return results[0].FormattedAddress, nil
}

func (g *GoogleGeocoder) throttle(ctx context.Context) error {
	g.mu.Lock()
	wait := g.gap - time.Since(g.last)
	if wait <= 0 {
		g.last = time.Now()
		g.mu.Unlock()
		return nil
	}
	g.last = time.Now().Add(wait)
	g.mu.Unlock()
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
