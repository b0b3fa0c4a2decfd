package locker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/locker"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewRedis_NilClient(t *testing.T) {
	t.Parallel()

	_, err := locker.NewRedis(nil)
	assert.ErrorIs(t, err, locker.ErrNilRedis)
}

func TestRedis_LockUnlock(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	l, err := locker.NewRedis(client, locker.WithPrefix("test:"), locker.WithTTL(time.Minute))
	require.NoError(t, err)

	unlock, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:user-1"))
	assert.Equal(t, time.Minute, mr.TTL("test:user-1"))

	unlock()
	assert.False(t, mr.Exists("test:user-1"))
}

func TestRedis_BlocksUntilReleased(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := locker.NewRedis(client, locker.WithRetryDelay(5*time.Millisecond))
	require.NoError(t, err)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
}

func TestRedis_DoesNotReleaseForeignLock(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	l, err := locker.NewRedis(client, locker.WithPrefix("p:"))
	require.NoError(t, err)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Lock expired and another owner took over.
	require.NoError(t, mr.Set("p:k", "someone-else"))
	unlock()

	got, err := mr.Get("p:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_MutualExclusion(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := locker.NewRedis(client, locker.WithRetryDelay(time.Millisecond))
	require.NoError(t, err)

	var active, violations int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "shared")
			if !assert.NoError(t, err) {
				return
			}
			if atomic.AddInt32(&active, 1) > 1 {
				atomic.AddInt32(&violations, 1)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Zero(t, violations)
}

func TestRedis_ServerError(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	l, err := locker.NewRedis(client)
	require.NoError(t, err)

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, locker.ErrLockFailed)
}
