package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces token keys in Redis.
const DefaultKeyPrefix = "budget:token:"

// RedisResolver looks tokens up as string keys in Redis. The value stored
// under prefix+token is the user ID.
type RedisResolver struct {
	client *redis.Client
	prefix string
}

// NewRedisResolver connects to addr.
func NewRedisResolver(addr, password string, db int, prefix string) *RedisResolver {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisResolverFromClient(rdb, prefix)
}

// NewRedisResolverFromClient wraps an existing client.
func NewRedisResolverFromClient(client *redis.Client, prefix string) *RedisResolver {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisResolver{client: client, prefix: prefix}
}

// Resolve implements CredentialResolver.
func (r *RedisResolver) Resolve(ctx context.Context, token string) (string, error) {
	user, err := r.client.Get(ctx, r.prefix+token).Result()
	if errors.Is(err, redis.Nil) || (err == nil && user == "") {
		return "", ErrUnknownCredential
	}
	if err != nil {
		return "", fmt.Errorf("redis lookup: %w", err)
	}
	return user, nil
}

// Ping checks connectivity.
func (r *RedisResolver) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisResolver) Close() error {
	return r.client.Close()
}
