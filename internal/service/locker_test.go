package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "location:1")
	require.NoError(t, err)

	other, err := l.Lock(context.Background(), "location:2")
	require.NoError(t, err, "different keys do not contend")
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "location:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op

	again, err := l.Lock(context.Background(), "location:1")
	require.NoError(t, err)
	again()
}

// Runs only against a real server: REDIS_ADDR=localhost:6379 go test ./...
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLocker(rdb, "sites-lock-test", time.Second)
	l.wait = 100 * time.Millisecond

	unlock, err := l.Lock(context.Background(), "location:1")
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), "location:1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	again, err := l.Lock(context.Background(), "location:1")
	require.NoError(t, err)
	again()
}
