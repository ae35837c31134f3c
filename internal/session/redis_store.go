package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// compareAndDeleteScript removes a hash field only while it holds ARGV[2].
var compareAndDeleteScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call("HDEL", KEYS[1], ARGV[1])
end
return 0
`)

// RedisStore keeps each session as a Redis hash whose expiry is pushed
// forward on every write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) Open(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	return &redisSession{store: s, id: id}, nil
}

type redisSession struct {
	store *RedisStore
	id    string
}

func (rs *redisSession) ID() string {
	return rs.id
}

func (rs *redisSession) key() string {
	return fmt.Sprintf("session:%s", rs.id)
}

func (rs *redisSession) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := rs.store.client.HGet(ctx, rs.key(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session key: %w", err)
	}
	return value, nil
}

func (rs *redisSession) Set(ctx context.Context, key string, value []byte) error {
	_, err := rs.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rs.key(), key, value)
		pipe.Expire(ctx, rs.key(), rs.store.ttl)
		return nil
	})
	if err != nil {
		rs.store.logger.WithError(err).Error("Failed to write session to Redis")
		return fmt.Errorf("failed to write session key: %w", err)
	}
	return nil
}

func (rs *redisSession) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	removed, err := compareAndDeleteScript.Run(ctx, rs.store.client, []string{rs.key()}, key, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to delete session key: %w", err)
	}
	return removed > 0, nil
}
