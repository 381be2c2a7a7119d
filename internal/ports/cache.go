package ports

import (
	"context"
	"time"
)

// Cache defines a generic TTL'd key-value capability for usecases.
// Adapters may be backed by an in-process map or a shared store; every
// cached value is a pure function of its key, so idempotent overwrite is
// safe and no cross-instance coherency is required.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// InvalidatePattern removes every key the predicate matches and
	// returns the number of entries removed.
	InvalidatePattern(ctx context.Context, match func(key string) bool) (int, error)
}
