package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-signals/internal/models"
)

const signalKeyPrefix = "signals:"

// SignalCacheStats tracks cache performance metrics
type SignalCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// HitRate returns hits as a percentage of lookups.
func (s SignalCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// RedisSignalCache keeps the latest analysis result per symbol and timeframe.
// A cache built on a nil client is disabled: reads miss and writes are dropped.
type RedisSignalCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	mu    sync.RWMutex
	stats SignalCacheStats
}

// NewRedisSignalCache creates a new Redis-based signal cache
func NewRedisSignalCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisSignalCache {
	return &RedisSignalCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the cache key for a symbol and timeframe.
func Key(symbol, timeframe string) string {
	return signalKeyPrefix + symbol + ":" + timeframe
}

// Enabled reports whether the cache has a backing client.
func (c *RedisSignalCache) Enabled() bool {
	return c != nil && c.redis != nil
}

// Get retrieves the cached result. Redis and decoding errors count as misses.
func (c *RedisSignalCache) Get(ctx context.Context, symbol, timeframe string) (*models.AnalysisResult, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := Key(symbol, timeframe)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("Redis error getting cached signals")
		}
		c.record(func(s *SignalCacheStats) { s.Misses++ })
		return nil, false
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Error deserializing cached signals")
		c.record(func(s *SignalCacheStats) { s.Misses++ })
		return nil, false
	}

	c.record(func(s *SignalCacheStats) { s.Hits++ })
	return &result, true
}

// Set stores a result with the configured TTL.
func (c *RedisSignalCache) Set(ctx context.Context, result *models.AnalysisResult) error {
	if !c.Enabled() {
		return nil
	}
	key := Key(result.Symbol, result.Timeframe)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("error serializing signals for %s: %w", key, err)
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis error setting %s: %w", key, err)
	}

	c.record(func(s *SignalCacheStats) { s.Sets++ })
	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ttl": c.ttl.String(),
	}).Debug("Cached signals")

	return nil
}

// Invalidate drops the cached result for one symbol and timeframe.
func (c *RedisSignalCache) Invalidate(ctx context.Context, symbol, timeframe string) error {
	if !c.Enabled() {
		return nil
	}
	return c.redis.Del(ctx, Key(symbol, timeframe)).Err()
}

// CachedKeys returns the symbol:timeframe pairs currently cached.
func (c *RedisSignalCache) CachedKeys(ctx context.Context) ([]string, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var keys []string
	iter := c.redis.Scan(ctx, 0, signalKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), signalKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}

	return keys, nil
}

// Clear removes all cached signals.
func (c *RedisSignalCache) Clear(ctx context.Context) error {
	keys, err := c.CachedKeys(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}

	for i := range keys {
		keys[i] = signalKeyPrefix + keys[i]
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("count", len(keys)).Info("Cleared signal cache entries")
	return nil
}

// GetStats returns current cache statistics
func (c *RedisSignalCache) GetStats() SignalCacheStats {
	if c == nil {
		return SignalCacheStats{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LogStats logs current cache performance statistics
func (c *RedisSignalCache) LogStats() {
	stats := c.GetStats()
	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": fmt.Sprintf("%.2f%%", stats.HitRate()),
	}).Info("Signal cache stats")
}

func (c *RedisSignalCache) record(update func(*SignalCacheStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}
