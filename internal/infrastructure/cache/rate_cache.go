package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateCache is a read-through cache in front of a RateProvider.
// Published rates change at most daily, so a cached rate is served for
// the configured TTL before the backing provider is consulted again.
// Cache failures degrade to the backing provider, never to an error.
type RedisRateCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	provider   valueobject.RateProvider
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisRateCacheOption is a functional option for configuring the cache
type RedisRateCacheOption func(*RedisRateCache)

// WithRateCacheTTL sets how long a fetched rate is served from cache
func WithRateCacheTTL(ttl time.Duration) RedisRateCacheOption {
	return func(c *RedisRateCache) {
		c.ttl = ttl
	}
}

// WithRateCacheLogger sets the logger for the cache
func WithRateCacheLogger(logger *zap.Logger) RedisRateCacheOption {
	return func(c *RedisRateCache) {
		c.logger = logger
	}
}

// NewRedisRateCache creates a rate cache with its own Redis connection
func NewRedisRateCache(cfg config.RedisConfig, provider valueobject.RateProvider, opts ...RedisRateCacheOption) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisRateCache{
		client:     client,
		ownsClient: true,
		provider:   provider,
		ttl:        time.Hour,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisRateCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisRateCacheWithClient(client *redis.Client, provider valueobject.RateProvider, opts ...RedisRateCacheOption) *RedisRateCache {
	cache := &RedisRateCache{
		client:     client,
		ownsClient: false,
		provider:   provider,
		ttl:        time.Hour,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// rateCacheKey generates the cache key for a currency pair as of a date
func (c *RedisRateCache) rateCacheKey(from, to valueobject.Currency, asOf time.Time, rateType valueobject.RateType) string {
	return fmt.Sprintf("exchange_rate:%s:%s:%s:%s", from, to, rateType, asOf.Format("2006-01-02"))
}

// RateFor returns the cached rate if present, otherwise fetches from
// the backing provider and caches the result.
func (c *RedisRateCache) RateFor(ctx context.Context, from, to valueobject.Currency, asOf time.Time, rateType valueobject.RateType) (valueobject.ExchangeRate, error) {
	if from == to {
		return valueobject.IdentityRate(from), nil
	}

	cacheKey := c.rateCacheKey(from, to, asOf, rateType)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var rate valueobject.ExchangeRate
		if err := json.Unmarshal(data, &rate); err == nil {
			c.logger.Debug("Cache hit for exchange rate", zap.String("key", cacheKey))
			return rate, nil
		}
		// Corrupted entry, drop it and fall through to the provider
		_ = c.client.Del(ctx, cacheKey)
	} else if err != redis.Nil {
		c.logger.Warn("Failed to read exchange rate from cache",
			zap.String("key", cacheKey),
			zap.Error(err))
	}

	rate, err := c.provider.RateFor(ctx, from, to, asOf, rateType)
	if err != nil {
		return valueobject.ExchangeRate{}, err
	}

	if data, err := json.Marshal(rate); err == nil {
		if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache exchange rate",
				zap.String("key", cacheKey),
				zap.Error(err))
		}
	}

	return rate, nil
}

// Invalidate drops the cached rate for a pair and date, used when a
// rate is republished.
func (c *RedisRateCache) Invalidate(ctx context.Context, from, to valueobject.Currency, asOf time.Time, rateType valueobject.RateType) error {
	return c.client.Del(ctx, c.rateCacheKey(from, to, asOf, rateType)).Err()
}

// Close closes the Redis client if this cache owns it
func (c *RedisRateCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Ensure RedisRateCache implements the interface
var _ valueobject.RateProvider = (*RedisRateCache)(nil)
