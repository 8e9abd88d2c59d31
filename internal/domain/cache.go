package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require institutionID for isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, institutionID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, institutionID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, institutionID string, key string) error

	// GetResponse retrieves a cached assessment response.
	GetResponse(ctx context.Context, institutionID string, answersKey string) (*Response, error)

	// SetResponse caches an assessment response under the answers fingerprint.
	SetResponse(ctx context.Context, institutionID string, answersKey string, resp *Response, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `json:"type" yaml:"type"`

	// Local LRU cache settings (Community tier)
	LocalMaxSize int           `json:"localMaxSize" yaml:"localMaxSize"`
	LocalTTL     time.Duration `json:"localTtl" yaml:"localTtl"`

	// Redis settings (Pro tier)
	RedisAddr     string `json:"redisAddr" yaml:"redisAddr"`
	RedisPassword string `json:"-" yaml:"redisPassword"`
	RedisDB       int    `json:"redisDb" yaml:"redisDb"`

	// Two-phase settings
	EnableTwoPhase bool `json:"enableTwoPhase" yaml:"enableTwoPhase"` // If true, check local first, then Redis
}
