package eta

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shuttle-tracker/internal/geo"
	"github.com/example/shuttle-tracker/internal/models"
	"github.com/example/shuttle-tracker/internal/routing"
)

// Estimator produces a presentable ETA for one tracking session. The
// road-routing collaborator supplies real durations; when it errors or
// times out the haversine fallback answers instead, so a session that
// knows both endpoints always has some ETA.
//
// Recomputation is throttled: inside the interval the previous result is
// returned unchanged, stale but valid. The very first call always computes.
type Estimator struct {
	Router          routing.Router // nil forces the fallback path
	Interval        time.Duration
	CallTimeout     time.Duration
	DefaultSpeedMps float64
	Logger          *slog.Logger

	mu     sync.Mutex
	lastAt time.Time
	last   routing.Estimate
}

const (
	DefaultInterval    = 30 * time.Second
	DefaultCallTimeout = 2 * time.Second
	DefaultSpeedMps    = 8.0 // ~28.8 km/h city average
)

func (e *Estimator) Estimate(ctx context.Context, origin, destination models.Coord) routing.Estimate {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	e.mu.Lock()
	if !e.lastAt.IsZero() && time.Since(e.lastAt) < interval {
		cached := e.last
		e.mu.Unlock()
		return cached
	}
	e.mu.Unlock()

	est := e.compute(ctx, origin, destination)

	e.mu.Lock()
	e.lastAt = time.Now()
	e.last = est
	e.mu.Unlock()
	return est
}

func (e *Estimator) compute(ctx context.Context, origin, destination models.Coord) routing.Estimate {
	if e.Router != nil {
		timeout := e.CallTimeout
		if timeout <= 0 {
			timeout = DefaultCallTimeout
		}
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if est, err := e.Router.GetETA(rctx, origin, destination); err == nil {
			return est
		} else {
			e.logger().Warn("routing eta failed, using haversine fallback", "error", err)
		}
	}
	return Fallback(origin, destination, e.DefaultSpeedMps)
}

// Fallback is the pure-arithmetic estimate: haversine distance over an
// assumed average speed. It cannot fail.
func Fallback(origin, destination models.Coord, speedMps float64) routing.Estimate {
	if speedMps <= 0 {
		speedMps = DefaultSpeedMps
	}
	meters := geo.Distance(origin, destination)
	seconds := meters / speedMps
	return routing.Estimate{
		DistanceText:    routing.FormatDistance(meters),
		DurationText:    routing.FormatDuration(time.Duration(seconds * float64(time.Second))),
		DurationSeconds: seconds,
		DistanceMeters:  meters,
	}
}

func (e *Estimator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
