// Package cache provides the key/value stores backing commit status caching
// and the read-through FetchIf helper.
package cache

import (
	"context"
	"time"
)

// Store is a key/value store with per-entry TTLs. Read reports false for
// absent or expired keys.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
