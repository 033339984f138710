package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/shuttle-tracker/internal/models"
)

// LastKnown stores the most recent position seen for each service so that
// clients without an open relay socket can still fetch one over HTTP.
type LastKnown interface {
	Upsert(ctx context.Context, serviceID string, loc models.LiveLocation) error
	Get(ctx context.Context, serviceID string) (models.LiveLocation, bool, error)
}

// RedisLastKnown keeps positions in a Redis GEO set plus a metadata hash
// per service (heading, speed, timestamp).
type RedisLastKnown struct {
	client *redis.Client
	key    string
}

func NewRedisLastKnown(addr, password, key string) *RedisLastKnown {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisLastKnown{client: c, key: key}
}

func NewRedisLastKnownFromClient(c *redis.Client, key string) *RedisLastKnown {
	return &RedisLastKnown{client: c, key: key}
}

func (r *RedisLastKnown) Upsert(ctx context.Context, serviceID string, loc models.LiveLocation) error {
	if _, err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Longitude: loc.Lon,
		Latitude:  loc.Lat,
		Name:      serviceID,
	}).Result(); err != nil {
		return fmt.Errorf("geoadd %s: %w", serviceID, err)
	}
	meta := map[string]interface{}{"updated": time.Now().UTC().Format(time.RFC3339)}
	if loc.Heading != nil {
		meta["heading"] = fmt.Sprintf("%f", *loc.Heading)
	}
	if loc.Speed != nil {
		meta["speed"] = fmt.Sprintf("%f", *loc.Speed)
	}
	if err := r.client.HSet(ctx, metaKey(serviceID), meta).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", serviceID, err)
	}
	return nil
}

func (r *RedisLastKnown) Get(ctx context.Context, serviceID string) (models.LiveLocation, bool, error) {
	pos, err := r.client.GeoPos(ctx, r.key, serviceID).Result()
	if err != nil {
		return models.LiveLocation{}, false, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return models.LiveLocation{}, false, nil
	}
	loc := models.LiveLocation{Lat: pos[0].Latitude, Lon: pos[0].Longitude}
	if m, err := r.client.HGetAll(ctx, metaKey(serviceID)).Result(); err == nil {
		if v, ok := m["heading"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				loc.Heading = &f
			}
		}
		if v, ok := m["speed"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				loc.Speed = &f
			}
		}
		if v, ok := m["updated"]; ok {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				loc.Timestamp = ts
			}
		}
	}
	return loc, true, nil
}

func metaKey(id string) string { return "service:lastpos:" + id }
