package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis"
)

func TestMemoryGuardAdmitsOneRunPerDevice(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "abc")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, "abc"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}
	other, err := g.Acquire(ctx, "xyz")
	if err != nil {
		t.Errorf("other device should not be blocked: %v", err)
	}
	other()

	release()
	again, err := g.Acquire(ctx, "abc")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	// a stale release must not free the new holder
	release()
	if _, err := g.Acquire(ctx, "abc"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("stale release freed the device, got %v", err)
	}
	again()
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]interface{}
	ttls   map[string]time.Duration
}

func (f *fakeRedis) SetNX(key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[keys[0]] == args[0] {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisGuardUsesDeviceKeyWithTTL(t *testing.T) {
	fake := &fakeRedis{values: map[string]interface{}{}, ttls: map[string]time.Duration{}}
	g := NewRedisGuard(fake, time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "abc")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if fake.ttls["ava:device:abc:run"] != time.Minute {
		t.Errorf("expected lock key with 1m ttl, got %v", fake.ttls)
	}
	if _, err := g.Acquire(ctx, "abc"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}

	release()
	if _, ok := fake.values["ava:device:abc:run"]; ok {
		t.Error("release should delete the lock key")
	}
}

func TestRedisGuardSurfacesErrors(t *testing.T) {
	g := NewRedisGuard(errRedis{}, 0)
	if _, err := g.Acquire(context.Background(), "abc"); err == nil || errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected a connection error, got %v", err)
	}
}

type errRedis struct{}

func (errRedis) SetNX(string, interface{}, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(false, errors.New("connection refused"))
}

func (errRedis) Eval(string, []string, ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, nil)
}
