package redislock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	l := New(Config{Addr: mr.Addr(), TTL: time.Minute})
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists(DefaultKey))

	_, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, release(ctx))
	require.False(t, mr.Exists(DefaultKey))

	_, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLeaseExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	l := New(Config{Addr: mr.Addr(), Key: "runs", TTL: time.Second})
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStaleReleaseKeepsNewHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	l := New(Config{Addr: mr.Addr(), Key: "runs", TTL: time.Second})
	ctx := context.Background()

	staleRelease, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, staleRelease(ctx))
	require.True(t, mr.Exists("runs"))
}

func TestAcquireUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	l := New(Config{Addr: mr.Addr()})
	require.NoError(t, l.Ping(context.Background()))
	mr.Close()

	_, ok, err := l.Acquire(context.Background())
	require.Error(t, err)
	require.False(t, ok)
}
