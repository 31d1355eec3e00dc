package allowlist

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "voidcheck:allowlist:"

	redisScanCount = 1000
)

type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// RedisOptions defines a connection to Redis.
type RedisOptions struct {
	Address  string
	DB       int
	Password string
	Prefix   string
}

func (r RedisOptions) getPrefix() string {
	if r.Prefix == "" {
		return DefaultRedisPrefix
	}

	return r.Prefix
}

// Redis is an allow list which can be shared by several instances.
// Expiration is done by Redis itself.
type Redis struct {
	client redisClient
	prefix string
}

func (r *Redis) Put(ctx context.Context, username string, ip net.IP, ttl time.Duration) error {
	// zero expiration is a persistent key
	ttl = max(ttl, 0)

	if err := r.client.Set(ctx, r.key(username), ip.String(), ttl).Err(); err != nil {
		return fmt.Errorf("cannot store %s: %w", username, err)
	}

	return nil
}

func (r *Redis) Contains(ctx context.Context, username string, ip net.IP) bool {
	stored, err := r.client.Get(ctx, r.key(username)).Result()
	if err != nil {
		return false
	}

	return stored == ip.String()
}

func (r *Redis) Remove(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, r.key(username)).Err(); err != nil {
		return fmt.Errorf("cannot remove %s: %w", username, err)
	}

	return nil
}

// Purge does nothing, keys are expired by Redis.
func (r *Redis) Purge(_ context.Context) (int, error) {
	return 0, nil
}

// Size counts keys with a prefix. It walks a keyspace so it is not
// cheap for large databases.
func (r *Redis) Size(ctx context.Context) int {
	var (
		cursor uint64
		size   int
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", redisScanCount).Result()
		if err != nil {
			return size
		}

		size += len(keys)
		cursor = next

		if cursor == 0 {
			return size
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close() //nolint: wrapcheck
}

func (r *Redis) key(username string) string {
	return r.prefix + username
}

// NewRedis connects to Redis and checks that it responds.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		DB:       opts.DB,
		Password: opts.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()

		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}

	return newRedis(client, opts.getPrefix()), nil
}

func newRedis(client redisClient, prefix string) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
	}
}
