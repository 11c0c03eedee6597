// Package redislock guards polling runs across replicas with a Redis key.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key holding the run lock.
const DefaultKey = "container-status-poller:run-lock"

// DefaultTTL bounds how long a crashed holder can block other replicas.
const DefaultTTL = 30 * time.Minute

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config captures the Redis address and lock parameters.
type Config struct {
	Addr string
	Key  string
	TTL  time.Duration
}

// Lock is a single-holder lease.
type Lock struct {
	c   *redis.Client
	key string
	ttl time.Duration
}

// New connects to Redis at cfg.Addr.
func New(cfg Config) *Lock {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: cfg.Addr}), cfg)
}

// NewWithClient builds a Lock on an existing client.
func NewWithClient(c *redis.Client, cfg Config) *Lock {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Lock{c: c, key: cfg.Key, ttl: cfg.TTL}
}

// Acquire tries once to take the lease. When ok is false another holder owns
// it. The returned release func only deletes the key if this caller still
// holds it.
func (l *Lock) Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.c.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.c, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("redis release %s: %w", l.key, err)
		}
		return nil
	}
	return release, true, nil
}

// Ping checks connectivity.
func (l *Lock) Ping(ctx context.Context) error {
	if err := l.c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (l *Lock) Close() error {
	return l.c.Close()
}
