package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Guard admits at most one run per device at a time.
type Guard interface {
	// Acquire fails with ErrRunInProgress when the device is busy.
	Acquire(ctx context.Context, deviceID string) (release func(), err error)
}

type memoryGuard struct {
	held *xsync.MapOf[string, uuid.UUID]
}

func NewMemoryGuard() Guard {
	return &memoryGuard{held: xsync.NewMapOf[string, uuid.UUID]()}
}

// Acquire implements Guard.
func (g *memoryGuard) Acquire(ctx context.Context, deviceID string) (func(), error) {
	token := uuid.New()
	if _, loaded := g.held.LoadOrStore(deviceID, token); loaded {
		return nil, ErrRunInProgress
	}
	return func() {
		g.held.Compute(deviceID, func(cur uuid.UUID, loaded bool) (uuid.UUID, bool) {
			return cur, !loaded || cur == token
		})
	}, nil
}

// RedisLocker is the subset of *redis.Client the redis guard needs.
type RedisLocker interface {
	SetNX(key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(script string, keys []string, args ...interface{}) *redis.Cmd
}

// delete the key only while it still holds our token
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

type redisGuard struct {
	client RedisLocker
	ttl    time.Duration
}

// NewRedisGuard shares the busy flag across instances. ttl bounds how long a
// crashed instance can keep a device locked.
func NewRedisGuard(client RedisLocker, ttl time.Duration) Guard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisGuard{client: client, ttl: ttl}
}

func runLockKey(deviceID string) string {
	return fmt.Sprintf("ava:device:%s:run", deviceID)
}

// Acquire implements Guard.
func (g *redisGuard) Acquire(ctx context.Context, deviceID string) (func(), error) {
	key := runLockKey(deviceID)
	token := uuid.NewString()
	ok, err := g.client.SetNX(key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("run guard: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		_ = g.client.Eval(releaseScript, []string{key}, token).Err()
	}, nil
}
