package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bizpulse/backend/internal/application/erpconn"
)

// releaseScript deletes the lock key only when it still holds our token, so
// a lock that expired and was re-acquired by another instance is not removed.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSyncLock implements a non-blocking distributed lock on Redis SETNX.
// It is suitable for deployments where multiple instances may attempt to
// sync the same connection concurrently.
type RedisSyncLock struct {
	client *redis.Client
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSyncLock creates a new Redis-backed lock
func NewRedisSyncLock(cfg RedisConfig) (*RedisSyncLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSyncLock{client: client}, nil
}

// NewRedisSyncLockWithClient creates a lock with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisSyncLockWithClient(client *redis.Client) *RedisSyncLock {
	return &RedisSyncLock{client: client}
}

// Acquire attempts to take the lock without blocking. When the lock is
// already held elsewhere it returns acquired=false and no error; the caller
// decides whether that is a conflict. The returned release func is best
// effort: an expired lock releases itself through the TTL.
func (l *RedisSyncLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}

// Close closes the Redis client
func (l *RedisSyncLock) Close() error {
	return l.client.Close()
}

// Ensure RedisSyncLock implements DistributedLock
var _ erpconn.DistributedLock = (*RedisSyncLock)(nil)
