package redislock

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	address  = "localhost:6379"
	user     = ""
	password = "RedisPassw0rd"
)

func getClient() redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{address},
		Username: user,
		Password: password,
		DB:       0,
	})
}

func Test_Lock_MutualExclusion(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	client := getClient()
	defer client.Close()

	l := NewLocker(client, WithRetryInterval(5*time.Millisecond))

	ctx := context.Background()

	unlock, err := l.Lock(ctx, "definition:expense:1")
	require.NoError(t, err)

	blockedCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	_, err = l.Lock(blockedCtx, "definition:expense:1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	unlock2, err := l.Lock(ctx, "definition:expense:1")
	require.NoError(t, err)
	unlock2()
}

func Test_Lock_ReleaseIsScopedToHolder(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	client := getClient()
	defer client.Close()

	l := NewLocker(client, WithTTL(50*time.Millisecond), WithRetryInterval(5*time.Millisecond))

	ctx := context.Background()

	staleUnlock, err := l.Lock(ctx, "definition:travel:1")
	require.NoError(t, err)

	// Wait out the TTL so the key expires and can be re-acquired.
	time.Sleep(80 * time.Millisecond)

	unlock, err := l.Lock(ctx, "definition:travel:1")
	require.NoError(t, err)

	// The stale holder's release must not drop the new holder's lock.
	staleUnlock()

	held, err := client.Exists(ctx, "lock:definition:travel:1").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), held)

	unlock()
}
