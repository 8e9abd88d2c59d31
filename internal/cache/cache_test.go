package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

func testResponse() *domain.Response {
	return &domain.Response{
		RiskLevel:           domain.LevelMedium,
		RiskProbability:     47.12,
		ContributingFactors: []string{"Stress", "Sleep"},
		ProtectiveFactors:   []string{"Support"},
		Insights: &domain.Insights{
			Confidence: domain.LevelLow,
			Waterfall:  []domain.WaterfallItem{{Factor: "Stress", Impact: 60}, {Factor: "Support", Impact: -40}},
		},
	}
}

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	institutionID := "inst-001"

	t.Run("SetAndGet", func(t *testing.T) {
		if err := cache.Set(ctx, institutionID, "key1", []byte("value1"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, institutionID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, institutionID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, institutionID, "key2", []byte("value2"), time.Minute)

		if err := cache.Delete(ctx, institutionID, "key2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if val, _ := cache.Get(ctx, institutionID, "key2"); val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, institutionID, "expiring", []byte("temp"), 10*time.Millisecond)

		if val, _ := cache.Get(ctx, institutionID, "expiring"); val == nil {
			t.Error("expected value before expiration")
		}

		time.Sleep(20 * time.Millisecond)

		if val, _ := cache.Get(ctx, institutionID, "expiring"); val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		small := NewLRUCache(3)

		_ = small.Set(ctx, institutionID, "a", []byte("1"), time.Minute)
		_ = small.Set(ctx, institutionID, "b", []byte("2"), time.Minute)
		_ = small.Set(ctx, institutionID, "c", []byte("3"), time.Minute)

		// touch 'a' so 'b' becomes the oldest
		_, _ = small.Get(ctx, institutionID, "a")
		_ = small.Set(ctx, institutionID, "d", []byte("4"), time.Minute)

		if val, _ := small.Get(ctx, institutionID, "b"); val != nil {
			t.Error("expected 'b' to be evicted")
		}
		if val, _ := small.Get(ctx, institutionID, "a"); val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("InstitutionIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "inst-a", "shared-key", []byte("a-value"), time.Minute)
		_ = cache.Set(ctx, "inst-b", "shared-key", []byte("b-value"), time.Minute)

		val1, _ := cache.Get(ctx, "inst-a", "shared-key")
		val2, _ := cache.Get(ctx, "inst-b", "shared-key")

		if string(val1) != "a-value" {
			t.Errorf("expected 'a-value', got '%s'", string(val1))
		}
		if string(val2) != "b-value" {
			t.Errorf("expected 'b-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresInstitutionID", func(t *testing.T) {
		if err := cache.Set(ctx, "", "key", []byte("value"), time.Minute); !errors.Is(err, ErrInstitutionRequired) {
			t.Errorf("expected ErrInstitutionRequired, got %v", err)
		}
		if _, err := cache.Get(ctx, "", "key"); !errors.Is(err, ErrInstitutionRequired) {
			t.Errorf("expected ErrInstitutionRequired, got %v", err)
		}
	})

	t.Run("ResponseRoundTrip", func(t *testing.T) {
		if err := cache.SetResponse(ctx, institutionID, "abc123", testResponse(), time.Minute); err != nil {
			t.Fatalf("SetResponse failed: %v", err)
		}

		got, err := cache.GetResponse(ctx, institutionID, "abc123")
		if err != nil {
			t.Fatalf("GetResponse failed: %v", err)
		}
		if got == nil || got.RiskLevel != domain.LevelMedium || got.RiskProbability != 47.12 {
			t.Fatalf("unexpected response %+v", got)
		}
		if len(got.Insights.Waterfall) != 2 {
			t.Errorf("expected waterfall to survive, got %+v", got.Insights)
		}

		miss, err := cache.GetResponse(ctx, institutionID, "unknown")
		if err != nil || miss != nil {
			t.Errorf("expected nil miss, got %+v, %v", miss, err)
		}
	})

	t.Run("ErrorResponsesNotCached", func(t *testing.T) {
		_ = cache.SetResponse(ctx, institutionID, "err", domain.ErrorResponse(domain.ErrMsgModelNotFound), time.Minute)
		if got, _ := cache.GetResponse(ctx, institutionID, "err"); got != nil {
			t.Errorf("error response must not be cached, got %+v", got)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		c := NewLRUCache(50)
		_ = c.Set(ctx, institutionID, "k1", []byte("v1"), time.Minute)
		_ = c.Set(ctx, institutionID, "k2", []byte("v2"), time.Minute)
		_, _ = c.Get(ctx, institutionID, "k1")
		_, _ = c.Get(ctx, institutionID, "missing")

		s := c.Stats()
		if s.Size != 2 || s.Capacity != 50 {
			t.Errorf("expected size 2 capacity 50, got %+v", s)
		}
		if s.Hits != 1 || s.Misses != 1 {
			t.Errorf("expected 1 hit and 1 miss, got %+v", s)
		}
	})

	t.Run("Close", func(t *testing.T) {
		c := NewLRUCache(10)
		_ = c.Set(ctx, institutionID, "k", []byte("v"), time.Minute)

		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		if val, _ := c.Get(ctx, institutionID, "k"); val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

// lruRemote stands in for Redis as the shared tier.
type lruRemote struct {
	*LRUCache
	gets int
}

func (r *lruRemote) Get(ctx context.Context, institutionID string, key string) ([]byte, error) {
	r.gets++
	return r.LRUCache.Get(ctx, institutionID, key)
}

func TestTwoPhaseCache(t *testing.T) {
	ctx := context.Background()
	institutionID := "inst-001"

	remote := &lruRemote{LRUCache: NewLRUCache(100)}
	cache := newTwoPhase(NewLRUCache(100), remote, time.Minute)

	t.Run("WriteThrough", func(t *testing.T) {
		if err := cache.SetResponse(ctx, institutionID, "k1", testResponse(), time.Hour); err != nil {
			t.Fatalf("SetResponse failed: %v", err)
		}
		if val, _ := remote.LRUCache.Get(ctx, institutionID, responsePrefix+"k1"); val == nil {
			t.Error("expected value in remote tier")
		}
	})

	t.Run("L1Hit", func(t *testing.T) {
		before := remote.gets
		got, err := cache.GetResponse(ctx, institutionID, "k1")
		if err != nil || got == nil {
			t.Fatalf("expected hit, got %v %v", got, err)
		}
		if remote.gets != before {
			t.Error("L1 hit must not reach the remote tier")
		}
	})

	t.Run("L2HitPopulatesL1", func(t *testing.T) {
		data := []byte("shared")
		_ = remote.Set(ctx, institutionID, "k2", data, time.Hour)

		val, err := cache.Get(ctx, institutionID, "k2")
		if err != nil || string(val) != "shared" {
			t.Fatalf("expected remote value, got %q %v", val, err)
		}
		if local, _ := cache.local.Get(ctx, institutionID, "k2"); local == nil {
			t.Error("expected L1 to be populated")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := cache.Delete(ctx, institutionID, "k2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if val, _ := cache.Get(ctx, institutionID, "k2"); val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("inst-1", responsePrefix+"abc"); got != "pulse:inst-1:resp:abc" {
		t.Errorf("unexpected key %q", got)
	}
}
