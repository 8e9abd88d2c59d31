package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// New creates a new cache based on configuration.
// For Community tier: returns LRU cache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping LRU + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// remoteTier is the shared L2 behind a TwoPhaseCache.
type remoteTier interface {
	byteStore
	Delete(ctx context.Context, institutionID string, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// TwoPhaseCache checks a local LRU before a shared remote tier.
// L1: Local LRU cache for fast reads
// L2: Redis shared by every replica
type TwoPhaseCache struct {
	local  *LRUCache
	remote remoteTier
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	return newTwoPhase(NewLRUCache(cfg.LocalMaxSize), remote, cfg.LocalTTL), nil
}

func newTwoPhase(local *LRUCache, remote remoteTier, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Minute
	}
	return &TwoPhaseCache{local: local, remote: remote, l1TTL: l1TTL}
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, institutionID string, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, institutionID, key)
	if err != nil || val != nil {
		return val, err
	}

	val, err = c.remote.Get(ctx, institutionID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, institutionID, key, val, c.l1TTL)
	}
	return val, nil
}

// Set writes to both tiers. L1 keeps the entry for at most l1TTL.
func (c *TwoPhaseCache) Set(ctx context.Context, institutionID string, key string, value []byte, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, institutionID, key, value, l1TTL); err != nil {
		return err
	}
	return c.remote.Set(ctx, institutionID, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, institutionID string, key string) error {
	if err := c.local.Delete(ctx, institutionID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, institutionID, key)
}

// GetResponse retrieves a cached assessment response from either tier.
func (c *TwoPhaseCache) GetResponse(ctx context.Context, institutionID string, answersKey string) (*domain.Response, error) {
	return getResponse(ctx, c, institutionID, answersKey)
}

// SetResponse caches a successful assessment response in both tiers.
func (c *TwoPhaseCache) SetResponse(ctx context.Context, institutionID string, answersKey string, resp *domain.Response, ttl time.Duration) error {
	return setResponse(ctx, c, institutionID, answersKey, resp, ttl)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() Stats {
	return c.local.Stats()
}
