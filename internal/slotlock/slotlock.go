// Package slotlock serializes booking attempts for one doctor at one
// instant. The Redis implementation works across replicas; Local is the
// single-process fallback used when REDIS_ADDR is unset.
package slotlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another booking holds the slot.
var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker guards a critical section per (doctor, instant).
type Locker interface {
	WithSlotLock(ctx context.Context, doctorID string, at time.Time, fn func(ctx context.Context) error) error
}

// Key is the lock name for a doctor's slot.
func Key(doctorID string, at time.Time) string {
	return fmt.Sprintf("lock:slot:%s:%d", doctorID, at.UTC().Unix())
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Redis is a SET NX lock with a compare-and-delete release.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a locker holding each key for at most ttl.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// WithSlotLock implements Locker. fn runs with a context bounded by the TTL.
func (l *Redis) WithSlotLock(ctx context.Context, doctorID string, at time.Time, fn func(ctx context.Context) error) error {
	key := Key(doctorID, at)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(lockCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *Redis) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}

// Local is an in-process keyed try-lock with the same contract as Redis.
// The zero value is ready to use.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal returns an empty in-process locker.
func NewLocal() *Local { return &Local{held: map[string]struct{}{}} }

// WithSlotLock implements Locker.
func (l *Local) WithSlotLock(ctx context.Context, doctorID string, at time.Time, fn func(ctx context.Context) error) error {
	key := Key(doctorID, at)

	l.mu.Lock()
	if l.held == nil {
		l.held = map[string]struct{}{}
	}
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}
