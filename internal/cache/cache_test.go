package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/erazemk/stash/internal/model"
)

func TestStashKey(t *testing.T) {
	if got := stashKey(42); got != "stash:course:42" {
		t.Errorf("stashKey(42) = %q", got)
	}
}

func TestNop(t *testing.T) {
	var c Stashes = Nop{}
	ctx := context.Background()

	c.Set(ctx, model.Stash{ID: 1, CourseID: 2})
	if _, ok := c.Get(ctx, 2); ok {
		t.Error("Nop cache returned a hit")
	}
}

func TestRedisStashes(t *testing.T) {
	addr := os.Getenv("STASH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STASH_TEST_REDIS_ADDR not set")
	}

	client, closeRedis := NewRedis(addr, "", "")
	defer closeRedis()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	c := &RedisStashes{Redis: client, TTL: time.Minute}
	courseID := time.Now().UnixNano()
	defer c.Invalidate(ctx, courseID)

	if _, ok := c.Get(ctx, courseID); ok {
		t.Fatal("expected miss before Set")
	}

	c.Set(ctx, model.Stash{ID: 9, CourseID: courseID, Name: "Cached"})
	got, ok := c.Get(ctx, courseID)
	if !ok || got.ID != 9 || got.Name != "Cached" {
		t.Errorf("unexpected cache hit: %+v %v", got, ok)
	}

	c.Invalidate(ctx, courseID)
	if _, ok := c.Get(ctx, courseID); ok {
		t.Error("expected miss after Invalidate")
	}
}
