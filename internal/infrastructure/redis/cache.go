package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"location-tracking-core/internal/domain/location"
)

const (
	analyticsPrefix      = "analytics:"
	deviceLocationPrefix = "device:location:"
	geocodePrefix        = "geocode:"

	locationCacheTTL = 5 * time.Minute
)

type Cache struct {
	client *Client
}

func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

func analyticsKey(deviceID, kind string) string {
	return analyticsPrefix + deviceID + ":" + kind
}

// GetAnalytics reads a cached analytics result into dest. A miss returns
// false with no error.
func (c *Cache) GetAnalytics(ctx context.Context, deviceID, kind string, dest interface{}) (bool, error) {
	data, err := c.client.Client().Get(ctx, analyticsKey(deviceID, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetAnalytics caches an analytics result. The TTL comes from the tenant's
// plan tier, so paying tenants keep results longer.
func (c *Cache) SetAnalytics(ctx context.Context, deviceID, kind string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Client().Set(ctx, analyticsKey(deviceID, kind), data, ttl).Err()
}

// InvalidateAnalytics removes every cached analytics result for a device.
// Called after new samples are ingested so stale metrics never outlive the
// data they summarize.
func (c *Cache) InvalidateAnalytics(ctx context.Context, deviceID string) error {
	pattern := analyticsPrefix + deviceID + ":*"

	var cursor uint64
	for {
		keys, next, err := c.client.Client().Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan analytics keys failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Client().Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

type DeviceLocation struct {
	DeviceID string          `json:"device_id"`
	Sample   location.Sample `json:"sample"`
	CachedAt time.Time       `json:"cached_at"`
}

func (c *Cache) GetDeviceLocation(ctx context.Context, deviceID string) (*DeviceLocation, error) {
	data, err := c.client.Client().Get(ctx, deviceLocationPrefix+deviceID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var loc DeviceLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func (c *Cache) SetDeviceLocation(ctx context.Context, loc *DeviceLocation) error {
	loc.CachedAt = time.Now()

	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}

	return c.client.Client().Set(ctx, deviceLocationPrefix+loc.DeviceID, data, locationCacheTTL).Err()
}

// geocodeKey rounds coordinates so nearby fixes share one cache entry.
func geocodeKey(lat, lon float64) string {
	return fmt.Sprintf("%s%.4f:%.4f", geocodePrefix, lat, lon)
}

func (c *Cache) GetGeocode(ctx context.Context, lat, lon float64) (*location.Geocode, error) {
	data, err := c.client.Client().Get(ctx, geocodeKey(lat, lon)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var g location.Geocode
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Cache) SetGeocode(ctx context.Context, lat, lon float64, g *location.Geocode, ttl time.Duration) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}

	return c.client.Client().Set(ctx, geocodeKey(lat, lon), data, ttl).Err()
}
