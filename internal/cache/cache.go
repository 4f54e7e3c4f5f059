// Package cache provides the TTL key/value store used to memoize
// text-completion responses.
package cache

import (
	"context"
	"time"
)

// Cache maps string keys to string values that expire after a TTL.
// A miss is reported as ok=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}
