package locker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "cart:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "cart:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different key is independent.
	release2, ok, err := l.Acquire(ctx, "cart:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2(ctx)

	release(ctx)
	_, ok, err = l.Acquire(ctx, "cart:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_ExpiredLockIsReacquirable(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx, "cart:1", -time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "cart:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_EmptyKey(t *testing.T) {
	l := NewMemoryLocker()
	_, _, err := l.Acquire(context.Background(), "", time.Minute)
	assert.Error(t, err)
}
