package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(uid string) string {
	return "rideflow:handoff:" + uid
}

func (s *RedisStore) Put(ctx context.Context, uid string, h Handoff) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal handoff: %w", err)
	}
	return s.rdb.Set(ctx, key(uid), raw, s.ttl).Err()
}

// Take uses GETDEL so concurrent readers cannot both consume the handoff.
func (s *RedisStore) Take(ctx context.Context, uid string) (*Handoff, error) {
	raw, err := s.rdb.GetDel(ctx, key(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var h Handoff
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode handoff: %w", err)
	}
	return &h, nil
}
