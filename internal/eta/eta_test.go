package eta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/routing"
)

type fakeRouter struct {
	est   routing.Estimate
	err   error
	calls int
}

func (f *fakeRouter) GetETA(context.Context, models.Coord, models.Coord) (routing.Estimate, error) {
	f.calls++
	return f.est, f.err
}

func (f *fakeRouter) GetRoute(context.Context, models.Coord, models.Coord, []models.Coord, bool) (routing.Route, error) {
	return routing.Route{}, errors.New("unused")
}

func TestFirstCallAlwaysComputes(t *testing.T) {
	fr := &fakeRouter{est: routing.Estimate{DurationText: "5 dk", DurationSeconds: 300}}
	e := &Estimator{Router: fr, Interval: time.Hour}
	got := e.Estimate(context.Background(), models.Coord{}, models.Coord{Lat: 1})
	if fr.calls != 1 {
		t.Fatalf("expected one router call, got %d", fr.calls)
	}
	if got.DurationText != "5 dk" {
		t.Fatalf("unexpected estimate %+v", got)
	}
}

func TestThrottleReturnsStaleResultUnchanged(t *testing.T) {
	fr := &fakeRouter{est: routing.Estimate{DurationText: "5 dk"}}
	e := &Estimator{Router: fr, Interval: time.Hour}
	ctx := context.Background()

	first := e.Estimate(ctx, models.Coord{}, models.Coord{Lat: 1})

	// different inputs inside the window still return the first result
	fr.est = routing.Estimate{DurationText: "99 dk"}
	second := e.Estimate(ctx, models.Coord{Lat: 5}, models.Coord{Lat: 6})

	if fr.calls != 1 {
		t.Fatalf("throttled call must not hit the router, calls=%d", fr.calls)
	}
	if second != first {
		t.Fatalf("expected stale-but-valid %+v, got %+v", first, second)
	}
}

func TestThrottleExpiryRecomputes(t *testing.T) {
	fr := &fakeRouter{est: routing.Estimate{DurationText: "5 dk"}}
	e := &Estimator{Router: fr, Interval: 10 * time.Millisecond}
	ctx := context.Background()

	e.Estimate(ctx, models.Coord{}, models.Coord{Lat: 1})
	time.Sleep(20 * time.Millisecond)
	fr.est = routing.Estimate{DurationText: "7 dk"}
	got := e.Estimate(ctx, models.Coord{}, models.Coord{Lat: 1})

	if fr.calls != 2 {
		t.Fatalf("expected recompute after expiry, calls=%d", fr.calls)
	}
	if got.DurationText != "7 dk" {
		t.Fatalf("expected fresh result, got %+v", got)
	}
}

func TestRouterFailureFallsBackToHaversine(t *testing.T) {
	fr := &fakeRouter{err: errors.New("routing down")}
	e := &Estimator{Router: fr, Interval: time.Hour, DefaultSpeedMps: 10}
	got := e.Estimate(context.Background(), models.Coord{Lat: 0, Lon: 0}, models.Coord{Lat: 0, Lon: 1})
	if got.DurationSeconds <= 0 || got.DistanceText == "" {
		t.Fatalf("fallback must always produce an estimate, got %+v", got)
	}
}

func TestNoRouterUsesFallback(t *testing.T) {
	e := &Estimator{Interval: time.Hour}
	got := e.Estimate(context.Background(), models.Coord{Lat: 0, Lon: 0}, models.Coord{Lat: 1, Lon: 0})
	if got.DurationSeconds <= 0 {
		t.Fatalf("expected pure-arithmetic estimate, got %+v", got)
	}
}

func TestFallbackZeroDistance(t *testing.T) {
	got := Fallback(models.Coord{Lat: 1, Lon: 1}, models.Coord{Lat: 1, Lon: 1}, 0)
	if got.DurationSeconds != 0 {
		t.Fatalf("same point should be zero seconds, got %+v", got)
	}
	if got.DurationText == "" || got.DistanceText == "" {
		t.Fatalf("texts must always render, got %+v", got)
	}
}
