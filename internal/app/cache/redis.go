package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	"github.com/go-redis/redis/v8"
)

// DefaultPrefix namespaces keys written by Redis.
const DefaultPrefix = "vybe:"

// Redis is a CounterCache backed by a Redis server. Each value lives under
// prefix+"counter:"+key; a set at prefix+"counters:index" tracks written keys
// so reconciliation can walk them without SCAN.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ CounterCache = (*Redis)(nil)

// NewRedis wraps client. An empty prefix uses DefaultPrefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key counter.Key) (int64, bool, error) {
	value, err := r.client.Get(ctx, r.valueKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key counter.Key, value int64, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.valueKey(key), strconv.FormatInt(value, 10), ttl)
		pipe.SAdd(ctx, r.indexKey(), key.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...counter.Key) error {
	if len(keys) == 0 {
		return nil
	}
	values := make([]string, len(keys))
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = r.valueKey(k)
		members[i] = k.String()
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, values...)
		pipe.SRem(ctx, r.indexKey(), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context) ([]counter.Key, error) {
	members, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index: %w", err)
	}
	keys := make([]counter.Key, 0, len(members))
	for _, m := range members {
		if k, ok := counter.ParseKey(m); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (r *Redis) valueKey(k counter.Key) string {
	return r.prefix + "counter:" + k.String()
}

func (r *Redis) indexKey() string {
	return r.prefix + "counters:index"
}
