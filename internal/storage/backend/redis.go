package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowmesh/localstore/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisScanCount   = 500
	redisDeleteChunk = 500
)

// RedisOptions configures a Redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Redis is a backend on a Redis database, typically shared with other
// applications
type Redis struct {
	client *redis.Client
	log    zerolog.Logger
}

// OpenRedis connects to Redis and verifies the connection with PING
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	log := logger.WithComponent("backend.redis")
	log.Debug().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")

	return NewRedisFromClient(client), nil
}

// NewRedisFromClient wraps an existing client. Close closes the client.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		log:    logger.WithComponent("backend.redis"),
	}
}

// Set writes a key without expiry; expiration is tracked in the envelope
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

// Get reads a key
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis GET failed: %w", err)
	}
	return value, true, nil
}

// Delete removes a key
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

// DeleteMany removes keys with chunked DEL commands
func (r *Redis) DeleteMany(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += redisDeleteChunk {
		end := min(start+redisDeleteChunk, len(keys))
		if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis DEL failed: %w", err)
		}
	}
	return nil
}

// ListAllKeys walks the keyspace with SCAN. Keys written during the walk may
// or may not be included.
func (r *Redis) ListAllKeys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string

	iter := r.client.Scan(ctx, 0, "*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// SCAN may return a key more than once
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis SCAN failed: %w", err)
	}
	return keys, nil
}

// Close closes the client
func (r *Redis) Close() error {
	return r.client.Close()
}
