// Package lock serializes booking writes per doctor. All appointment
// creation and rescheduling for a doctor runs inside WithDoctorLock so that
// the conflict check and the insert happen without interleaving.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another writer holds the doctor's lock.
// Callers surface it as a booking conflict rather than retrying internally.
var ErrNotAcquired = errors.New("doctor booking lock not acquired")

// Locker guards the per-doctor booking critical section.
type Locker interface {
	WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker returns a Locker backed by a per-doctor Redis key, for
// deployments running more than one server process.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:doctor:%s", doctorID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire doctor lock: %w", err)
	}
	if !ok {
		return ErrNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	// The critical section must finish before the lock key expires.
	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// unlockScript deletes the key only when it still holds our token, so an
// expired lock reacquired by another writer is never released by us.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release doctor lock: %w", err)
	}
	return nil
}

// localLocker serializes with in-process mutexes, one per doctor. It is the
// default when no Redis URL is configured and is only correct for a single
// server process.
type localLocker struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*sync.Mutex
}

// NewLocalLocker returns an in-process Locker.
func NewLocalLocker() Locker {
	return &localLocker{doctors: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *localLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.doctors[doctorID]
	if !ok {
		m = &sync.Mutex{}
		l.doctors[doctorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
