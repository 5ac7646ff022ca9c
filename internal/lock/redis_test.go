package lock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMiniredisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl, discardLogger()), mr
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	l, mr := newMiniredisLocker(t, 5*time.Second)
	exerciseMutualExclusion(t, l)
	assert.False(t, mr.Exists(keyPrefix+Key("u1", "thyroid")), "lock key should be deleted on release")
}

func TestRedisLockerSetsTTL(t *testing.T) {
	l, mr := newMiniredisLocker(t, 5*time.Second)
	unlock, err := l.Lock(context.Background(), "u1:thyroid")
	require.NoError(t, err)
	defer unlock()

	assert.Equal(t, 5*time.Second, mr.TTL(keyPrefix+"u1:thyroid"))
}

func TestRedisLockerWaitsForExpiry(t *testing.T) {
	l, mr := newMiniredisLocker(t, time.Second)
	_, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mr.FastForward(2 * time.Second)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestRedisLockerLeavesForeignLockAlone(t *testing.T) {
	l, mr := newMiniredisLocker(t, time.Second)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Our lock expired and another instance took it over.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(keyPrefix+"k", "someone-else"))

	unlock()
	got, err := mr.Get(keyPrefix + "k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLockerReportsBackendErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, time.Second, discardLogger())
	l.newToken = func() string { return "token" }

	mock.ExpectSetNX(keyPrefix+"k", "token", time.Second).SetErr(errors.New("connection refused"))

	_, err := l.Lock(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}
