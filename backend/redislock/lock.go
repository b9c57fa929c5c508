// Package redislock provides a Redis-backed lock for coordinating graph
// rewiring across multiple processes sharing one deployed definition.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// KEYS[1] - lock key
// ARGV[1] - holder token
var releaseCmd = redis.NewScript(
	`if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0`)

type LockerOption func(l *Locker)

// WithTTL sets how long an acquired lock is held before Redis expires it. The
// TTL bounds how long a crashed holder can block other processes.
func WithTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) {
		l.ttl = ttl
	}
}

// WithRetryInterval sets how often a blocked acquisition re-attempts the lock.
func WithRetryInterval(interval time.Duration) LockerOption {
	return func(l *Locker) {
		l.retryInterval = interval
	}
}

func NewLocker(client redis.UniversalClient, opts ...LockerOption) *Locker {
	l := &Locker{
		rdb:           client,
		ttl:           time.Minute,
		retryInterval: 50 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

type Locker struct {
	rdb           redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
}

// Lock blocks until the key is acquired or ctx is done. The returned function
// releases the lock; releasing a lock that already expired is a no-op.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	token := uuid.NewString()

	for {
		acquired, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock %q: %w", key, err)
		}

		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}

	return func() {
		// Only the holder's token releases the key, so a slow release cannot
		// drop a lock that expired and was re-acquired by someone else.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = releaseCmd.Run(releaseCtx, l.rdb, []string{lockKey}, token).Err()
	}, nil
}
