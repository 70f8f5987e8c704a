package redisstore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/jrsteele09/go-truckdocs/kvstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// KeyPrefix is the prefix for all persisted device state keys
const KeyPrefix = "truckdocs:"

var _ kvstore.Store = (*RedisStore)(nil)

// RedisStore persists device state in Redis with a sliding TTL per key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing client. A zero ttl stores keys without expiry.
func New(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect creates a client and pings it with exponential backoff until it answers.
func Connect(ctx context.Context, addr, password string, maxRetries uint64) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	err := backoff.Retry(func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("redis ping failed, retrying")
			return err
		}
		return nil
	}, b)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[redisstore Connect] %s", addr)
	}

	log.Info().Str("addr", addr).Msg("connected to redis")
	return client, nil
}

func makeKey(key string) string {
	return KeyPrefix + key
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := rs.client.Get(ctx, makeKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[RedisStore.Get]")
	}
	return v, true, nil
}

func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := rs.client.Set(ctx, makeKey(key), value, rs.ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Set]")
	}
	return nil
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, makeKey(key)).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Delete]")
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (rs *RedisStore) Ping(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Ping]")
	}
	return nil
}
