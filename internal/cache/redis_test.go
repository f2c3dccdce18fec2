package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Runs against a real server: REFGATE_TEST_REDIS_ADDR=localhost:6379
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("REFGATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REFGATE_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, "refgate-test-"+t.Name(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := store.Ping(context.Background()); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	return store
}

func TestRedisStore_ReadWriteDelete(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if _, ok, err := store.Read(ctx, "a"); ok || err != nil {
		t.Fatalf("Expected miss, got ok=%v err=%v", ok, err)
	}

	if err := store.Write(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	value, ok, err := store.Read(ctx, "a")
	if err != nil || !ok || string(value) != "1" {
		t.Fatalf("Read = %q, %v, %v", value, ok, err)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Read(ctx, "a"); ok {
		t.Error("Expected entry to be gone after Delete")
	}
}

func TestRedisStore_FetchIf(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	defer store.Delete(ctx, "fetch")

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 2; i++ {
		if _, err := FetchIf(ctx, store, true, "fetch", ExpiresIn[string](time.Minute), compute); err != nil {
			t.Fatalf("FetchIf failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected one compute, got %d", calls)
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	store := NewRedisStore(nil, "refgate", nil)
	if got := store.key("commit_status/shop/v1"); got != "refgate:commit_status/shop/v1" {
		t.Errorf("key() = %q", got)
	}

	bare := NewRedisStore(nil, "", nil)
	if got := bare.key("k"); got != "k" {
		t.Errorf("key() without prefix = %q", got)
	}
}
