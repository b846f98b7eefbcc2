package lottery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// cachedVariable is the cache entry of one variable of one grid cell
type cachedVariable struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Values    []float64 `json:"values"`
}

// RedisWeatherCache caches weather observations in Redis, one entry per
// grid cell and variable, so queries of the same cell share entries whatever
// subset of variables they request.
//
// Any cache failure degrades to a direct provider call; the cache never makes
// an observation fail that the provider would have served.
type RedisWeatherCache struct {
	provider WeatherProvider
	client   redis.Cmdable
	ttl      time.Duration
	logger   Logger
}

// NewRedisWeatherCache wraps provider with a Redis cache of the given ttl
func NewRedisWeatherCache(provider WeatherProvider, client redis.Cmdable, ttl time.Duration, logger Logger) *RedisWeatherCache {
	if ttl <= 0 {
		ttl = DefaultWeatherCacheTTL
	}
	return &RedisWeatherCache{
		provider: provider,
		client:   client,
		ttl:      ttl,
		logger:   loggerOrDefault(logger),
	}
}

// weatherCacheKey builds lottery:weather:<lat>:<lon>:<variable>
func weatherCacheKey(lat, lon float64, variable string) string {
	return fmt.Sprintf("%s%.4f:%.4f:%s", WeatherCacheKeyPrefix, lat, lon, variable)
}

// Observe serves the cached variables of the query's cell and fetches the
// missing ones from the provider in a single request
func (c *RedisWeatherCache) Observe(ctx context.Context, query WeatherQuery) (*WeatherObservation, error) {
	obs := &WeatherObservation{
		Latitude:  query.Latitude,
		Longitude: query.Longitude,
		Values:    make(map[string][]float64, len(query.Variables)),
	}
	missing := c.lookup(ctx, query, obs)
	if len(missing) == 0 {
		c.logger.Debug("Weather cache hit for %.4f,%.4f: %d variables", query.Latitude, query.Longitude, len(query.Variables))
		return obs, nil
	}

	fresh, err := c.provider.Observe(ctx, WeatherQuery{
		Latitude:  query.Latitude,
		Longitude: query.Longitude,
		Variables: missing,
	})
	if err != nil {
		return nil, err
	}
	obs.Latitude, obs.Longitude = fresh.Latitude, fresh.Longitude

	for _, name := range missing {
		values, ok := fresh.Values[name]
		if !ok {
			continue
		}
		obs.Values[name] = values
		c.store(ctx, weatherCacheKey(query.Latitude, query.Longitude, name), cachedVariable{
			Latitude:  fresh.Latitude,
			Longitude: fresh.Longitude,
			Values:    values,
		})
	}
	return obs, nil
}

// lookup fills obs with the cached variables and returns the missing ones in query order
func (c *RedisWeatherCache) lookup(ctx context.Context, query WeatherQuery, obs *WeatherObservation) []string {
	if len(query.Variables) == 0 {
		return nil
	}

	keys := make([]string, len(query.Variables))
	for i, name := range query.Variables {
		keys[i] = weatherCacheKey(query.Latitude, query.Longitude, name)
	}

	entries, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Error("Weather cache read failed for %d keys: %v", len(keys), err)
		return append([]string(nil), query.Variables...)
	}

	var missing []string
	for i, name := range query.Variables {
		// MGet 对不存在的键返回 nil
		raw, ok := entries[i].(string)
		if !ok {
			missing = append(missing, name)
			continue
		}
		var entry cachedVariable
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			c.logger.Error("Discarding corrupt weather cache entry %s: %v", keys[i], err)
			missing = append(missing, name)
			continue
		}
		obs.Latitude, obs.Longitude = entry.Latitude, entry.Longitude
		obs.Values[name] = entry.Values
	}
	return missing
}

func (c *RedisWeatherCache) store(ctx context.Context, key string, entry cachedVariable) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("Failed to encode weather cache entry %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Weather cache write failed for key %s: %v", key, err)
	}
}
