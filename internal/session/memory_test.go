package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetPop(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	require.NoError(t, store.Set(ctx, "sid", KeySelectedLayout, "layout.simpleeventlist"))

	value, ok, err := store.Get(ctx, "sid", KeySelectedLayout)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "layout.simpleeventlist", value)

	// Get does not consume.
	_, ok, err = store.Get(ctx, "sid", KeySelectedLayout)
	require.NoError(t, err)
	assert.True(t, ok)

	value, ok, err = store.Pop(ctx, "sid", KeySelectedLayout)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "layout.simpleeventlist", value)

	// Pop consumes.
	_, ok, err = store.Pop(ctx, "sid", KeySelectedLayout)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreMissingSessionAndKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	_, ok, err := store.Get(ctx, "nope", KeyTargetYear)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "sid", KeyTargetYear, "2024"))
	_, ok, err = store.Get(ctx, "sid", KeySelectedLayout)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	require.NoError(t, store.Set(ctx, "a", KeyTargetYear, "2024"))
	require.NoError(t, store.Set(ctx, "b", KeyTargetYear, "2025"))

	value, _, err := store.Get(ctx, "a", KeyTargetYear)
	require.NoError(t, err)
	assert.Equal(t, "2024", value)

	_, ok, err := store.Pop(ctx, "b", KeyTargetYear)
	require.NoError(t, err)
	require.True(t, ok)

	// Popping b's key leaves a untouched.
	_, ok, err = store.Get(ctx, "a", KeyTargetYear)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)

	require.NoError(t, store.Set(ctx, "sid", KeyTargetYear, "2024"))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := store.Get(ctx, "sid", KeyTargetYear)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)

	require.NoError(t, store.Set(ctx, "a", KeyTargetYear, "2024"))
	require.NoError(t, store.Set(ctx, "b", KeyTargetYear, "2025"))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, store.Set(ctx, "c", KeyTargetYear, "2026"))

	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 0, store.Sweep())

	_, ok, err := store.Get(ctx, "c", KeyTargetYear)
	require.NoError(t, err)
	assert.True(t, ok)
}
