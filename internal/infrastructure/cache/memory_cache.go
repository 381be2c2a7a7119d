package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

const DefaultSweepInterval = 5 * time.Minute

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is a single-process TTL key-value store. Expired entries are
// removed lazily on read and proactively by a periodic sweep goroutine so
// memory stays bounded between reads.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

var _ ports.Cache = (*MemoryCache)(nil)

func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &MemoryCache{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go c.sweepLoop(sweepInterval)
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := validateKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[trimmedKey]
	if !ok {
		return "", false, nil
	}
	if e.expired(c.now()) {
		delete(c.entries, trimmedKey)
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := validateKey(ctx, key)
	if err != nil {
		return err
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[trimmedKey] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Has(ctx context.Context, key string) (bool, error) {
	_, found, err := c.Get(ctx, key)
	return found, err
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := validateKey(ctx, key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, trimmedKey)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) InvalidatePattern(ctx context.Context, match func(key string) bool) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	if match == nil {
		return 0, errors.New("match predicate is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func validateKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("key is required")
	}
	return trimmed, nil
}
