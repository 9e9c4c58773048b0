// Package cache keeps course to stash lookups in Redis. Cache failures are
// logged and treated as misses; the database stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/stash/internal/model"
)

const stashKeyPrefix = "stash:course:"

// Stashes caches the stash of each course.
type Stashes interface {
	Get(ctx context.Context, courseID int64) (*model.Stash, bool)
	Set(ctx context.Context, s model.Stash)
	Invalidate(ctx context.Context, courseID int64)
}

// NewRedis connects to Redis. A bare host gets the default port.
func NewRedis(addr, user, password string) (*redis.Client, func() error) {
	if !strings.Contains(addr, ":") {
		addr = addr + ":6379"
	}

	r := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: user,
		Password: password,
	})
	return r, r.Close
}

// RedisStashes is a Stashes backed by Redis with a fixed TTL.
type RedisStashes struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (c *RedisStashes) Get(ctx context.Context, courseID int64) (*model.Stash, bool) {
	val, err := c.Redis.Get(ctx, stashKey(courseID)).Bytes()
	switch {
	case err == redis.Nil:
		return nil, false
	case err != nil:
		slog.Error("can't get stash from redis", "course", courseID, "error", err)
		return nil, false
	}

	var s model.Stash
	if err := json.Unmarshal(val, &s); err != nil {
		slog.Error("can't parse cached stash", "course", courseID, "error", err)
		return nil, false
	}
	return &s, true
}

func (c *RedisStashes) Set(ctx context.Context, s model.Stash) {
	val, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, stashKey(s.CourseID), val, c.TTL).Err(); err != nil {
		slog.Error("can't cache stash in redis", "course", s.CourseID, "error", err)
	}
}

func (c *RedisStashes) Invalidate(ctx context.Context, courseID int64) {
	if err := c.Redis.Del(ctx, stashKey(courseID)).Err(); err != nil {
		slog.Error("can't invalidate cached stash", "course", courseID, "error", err)
	}
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, int64) (*model.Stash, bool) { return nil, false }
func (Nop) Set(context.Context, model.Stash)                {}
func (Nop) Invalidate(context.Context, int64)               {}

func stashKey(courseID int64) string {
	return stashKeyPrefix + strconv.FormatInt(courseID, 10)
}
