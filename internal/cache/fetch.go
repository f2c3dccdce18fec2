package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FetchIf is a conditional read-through cache.
//
// When shouldCache is false, compute runs and the store is neither read nor
// written. Otherwise a live entry under key is decoded and returned without
// calling compute; on a miss compute runs and its result is stored with the
// TTL expiry derives from it. Nothing is written when compute fails.
func FetchIf[T any](ctx context.Context, store Store, shouldCache bool, key string, expiry func(T) time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if !shouldCache {
		return compute(ctx)
	}

	var zero T

	data, ok, err := store.Read(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if ok {
		var cached T
		if err := json.Unmarshal(data, &cached); err != nil {
			return zero, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
		}
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	if err := store.Write(ctx, key, encoded, expiry(value)); err != nil {
		return zero, fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}

	return value, nil
}

// ExpiresIn returns an expiry function with a fixed TTL
func ExpiresIn[T any](ttl time.Duration) func(T) time.Duration {
	return func(T) time.Duration { return ttl }
}
