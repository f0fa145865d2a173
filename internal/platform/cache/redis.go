// Package cache holds the Redis-backed room cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pollpulse/internal/domain/room"
)

const keyPrefix = "room:"

type RoomCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRoomCache(rdb *redis.Client, ttl time.Duration) *RoomCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RoomCache{rdb: rdb, ttl: ttl}
}

func (c *RoomCache) Get(ctx context.Context, id string) (*room.Room, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r room.Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

func (c *RoomCache) Set(ctx context.Context, r *room.Room) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+r.ID, raw, c.ttl).Err()
}

func (c *RoomCache) Invalidate(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, keyPrefix+id).Err()
}
