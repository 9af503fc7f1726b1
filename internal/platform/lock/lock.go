// Package lock serializes work per key across processes. The scheduling
// service takes one lock per provider around its overlap check and insert.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context was done or the wait budget ran out.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker acquires an exclusive lock on key. The returned func releases it and
// is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// releaseScript deletes the key only when it still holds this owner's token,
// so a lock that expired and was re-taken is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX with an owner token.
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

// RedisOptions configures NewRedis. Zero values take defaults.
type RedisOptions struct {
	Prefix string
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// Wait is the longest Acquire retries before giving up.
	Wait time.Duration
	// RetryInterval is the pause between SET NX attempts.
	RetryInterval time.Duration
}

func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	r := &Redis{
		client:   client,
		prefix:   opts.Prefix,
		ttl:      opts.TTL,
		wait:     opts.Wait,
		interval: opts.RetryInterval,
	}
	if r.prefix == "" {
		r.prefix = "medmeet:lock:"
	}
	if r.ttl <= 0 {
		r.ttl = 5 * time.Second
	}
	if r.wait <= 0 {
		r.wait = 3 * time.Second
	}
	if r.interval <= 0 {
		r.interval = 25 * time.Millisecond
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// Release on a fresh context: the caller's may already be done.
					rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
					defer rcancel()
					_ = releaseScript.Run(rctx, r.client, []string{fullKey}, token).Err()
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-ticker.C:
		}
	}
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]chan struct{})}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		held, busy := l.locks[key]
		if !busy {
			ch := make(chan struct{})
			l.locks[key] = ch
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-held:
		}
	}
}
