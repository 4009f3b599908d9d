package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisStore keeps one JSON document per key in Redis, without TTL.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a store on an existing Redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Client returns the underlying Redis client, e.g. to share it with a
// ratelimit.Tracker.
func (s *RedisStore) Client() *redis.Client {
	return s.redis
}

// Get retrieves a cache entry by key.
func (s *RedisStore) Get(ctx context.Context, key string) (entry *Entry, err error) {
	defer func() { recordGet(backendRedis, err) }()

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, storageErr(backendRedis, "get", key, err)
	}
	return decodeEntry(data)
}

// Put stores a cache entry. Entries never expire.
func (s *RedisStore) Put(ctx context.Context, key string, entry *Entry) (err error) {
	defer func() { recordPut(backendRedis, err) }()

	data, err := encodeEntry(entry)
	if err != nil {
		return storageErr(backendRedis, "put", key, err)
	}
	if err := s.redis.Set(ctx, key, data, 0).Err(); err != nil {
		return storageErr(backendRedis, "put", key, err)
	}
	return nil
}

// Delete removes a cache entry.
func (s *RedisStore) Delete(ctx context.Context, key string) (err error) {
	defer func() { recordDelete(backendRedis, err) }()

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return storageErr(backendRedis, "delete", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return storageErr(backendRedis, "ping", "", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
