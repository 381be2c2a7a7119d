package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()

	c := NewMemoryCache(time.Hour)
	t.Cleanup(c.Close)
	return c
}

func TestMemoryCacheSetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "emb:abc", "[0.1,0.2]", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := c.Get(ctx, "emb:abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "[0.1,0.2]" {
		t.Fatalf("Get() = (%q, %v), want ([0.1,0.2], true)", value, found)
	}

	if err := c.Delete(ctx, "emb:abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := c.Get(ctx, "emb:abc"); found {
		t.Fatalf("Get() after delete expected found=false")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := c.Get(ctx, "k")
	if err != nil || !found || value != "v" {
		t.Fatalf("Get() before expiry = (%q, %v, %v), want (v, true, nil)", value, found, err)
	}

	time.Sleep(15 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "k"); found {
		t.Fatalf("Get() after expiry expected miss")
	}
	has, err := c.Has(ctx, "k")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if has {
		t.Fatalf("Has() after expiry expected false")
	}
}

func TestMemoryCacheSweepRemovesExpired(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	t.Cleanup(c.Close)
	ctx := context.Background()

	if err := c.Set(ctx, "short", "v", 5*time.Millisecond); err != nil {
		t.Fatalf("Set(short) error = %v", err)
	}
	if err := c.Set(ctx, "long", "v", time.Hour); err != nil {
		t.Fatalf("Set(long) error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	c.sweep()

	if got := c.size(); got != 1 {
		t.Fatalf("size after sweep = %d, want 1", got)
	}
}

func TestMemoryCacheInvalidatePattern(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"sim:org1:a", "sim:org1:b", "sim:org2:a", "emb:x"} {
		if err := c.Set(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	removed, err := c.InvalidatePattern(ctx, func(key string) bool {
		return strings.HasPrefix(key, "sim:org1:")
	})
	if err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}
	if removed != 2 {
		t.Fatalf("InvalidatePattern() removed = %d, want 2", removed)
	}

	if _, found, _ := c.Get(ctx, "sim:org2:a"); !found {
		t.Fatalf("unmatched key must survive invalidation")
	}
	if _, found, _ := c.Get(ctx, "emb:x"); !found {
		t.Fatalf("unmatched family must survive invalidation")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := c.size(); got != 0 {
		t.Fatalf("size after clear = %d, want 0", got)
	}
}

func TestMemoryCacheRejectsEmptyKey(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "  ", "v", time.Minute); err == nil {
		t.Fatalf("Set() expected error for blank key")
	}
	if _, _, err := c.Get(ctx, ""); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := c.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
