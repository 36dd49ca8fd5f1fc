package cache

import (
	"context"
	"time"
)

// Cache is the read-through cache used by repositories. Implementations must
// treat a miss as (false, nil).
type Cache interface {
	// Get unmarshals the cached value into dest. found=false leaves dest untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetIfAbsent stores value only when key is not cached yet and reports
	// whether it did. Read paths use it so a stale read cannot replace a value
	// written by a concurrent update.
	SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
}
