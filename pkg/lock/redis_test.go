package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisLocker_ExclusiveUntilRelease(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	key := "test-" + time.Now().Format("150405.000000000")
	locker := NewRedisLocker(client, 5*time.Second)

	release, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	release2, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ReleaseDoesNotStealForeignLock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	key := "test-foreign-" + time.Now().Format("150405.000000000")
	locker := NewRedisLocker(client, 50*time.Millisecond)

	release, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	// Let the TTL expire and someone else take the lock.
	time.Sleep(100 * time.Millisecond)
	other, err := NewRedisLocker(client, 5*time.Second).Lock(context.Background(), key)
	require.NoError(t, err)

	release()

	val, err := client.Get(context.Background(), lockKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.NotEmpty(t, val)
	other()
}
