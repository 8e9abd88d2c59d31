package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-wellbeing/pulse/internal/domain"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces Pulse keys in a shared Redis.
const redisKeyPrefix = "pulse:"

// RedisCache implements Cache using Redis.
// Used as the Pro tier cache and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value. Returns nil, nil when the key is absent.
func (c *RedisCache) Get(ctx context.Context, institutionID string, key string) ([]byte, error) {
	if institutionID == "" {
		return nil, ErrInstitutionRequired
	}

	val, err := c.client.Get(ctx, redisKey(institutionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value with TTL.
func (c *RedisCache) Set(ctx context.Context, institutionID string, key string, value []byte, ttl time.Duration) error {
	if institutionID == "" {
		return ErrInstitutionRequired
	}
	return c.client.Set(ctx, redisKey(institutionID, key), value, ttl).Err()
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, institutionID string, key string) error {
	if institutionID == "" {
		return ErrInstitutionRequired
	}
	return c.client.Del(ctx, redisKey(institutionID, key)).Err()
}

// GetResponse retrieves a cached assessment response.
func (c *RedisCache) GetResponse(ctx context.Context, institutionID string, answersKey string) (*domain.Response, error) {
	return getResponse(ctx, c, institutionID, answersKey)
}

// SetResponse caches a successful assessment response.
func (c *RedisCache) SetResponse(ctx context.Context, institutionID string, answersKey string, resp *domain.Response, ttl time.Duration) error {
	return setResponse(ctx, c, institutionID, answersKey, resp, ttl)
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func redisKey(institutionID, key string) string {
	return redisKeyPrefix + makeKey(institutionID, key)
}
