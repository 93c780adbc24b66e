package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/rewardgraph/internal/usecase"
)

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	client, mr := newMiniredis(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()
	key := "POST:/api/v1/datasets:abc"

	exists, stored, err := store.CheckAndSet(ctx, key, nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, stored)
	assert.Equal(t, time.Minute, mr.TTL("idempotency:"+key))

	// a concurrent duplicate sees the claim
	exists, stored, err = store.CheckAndSet(ctx, key, nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, usecase.IdempotencyPending, string(stored))

	require.NoError(t, store.Update(ctx, key, []byte(`{"status":201}`), 2*time.Minute))
	exists, stored, err = store.CheckAndSet(ctx, key, nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.JSONEq(t, `{"status":201}`, string(stored))
	assert.Equal(t, 2*time.Minute, mr.TTL("idempotency:"+key))

	require.NoError(t, store.Release(ctx, key))
	assert.False(t, mr.Exists("idempotency:"+key))
}

func TestIdempotencyStore_StoresInitialResponse(t *testing.T) {
	client, mr := newMiniredis(t)
	store := NewIdempotencyStore(client)

	exists, _, err := store.CheckAndSet(context.Background(), "k", []byte("cached"), time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := mr.Get("idempotency:k")
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
}

func TestIdempotencyStore_ClaimExpires(t *testing.T) {
	client, mr := newMiniredis(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "k", nil, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	exists, _, err := store.CheckAndSet(ctx, "k", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists, "expired claim should be taken again")
}

func TestIdempotencyStore_RedisDown(t *testing.T) {
	client, mr := newMiniredis(t)
	store := NewIdempotencyStore(client)
	mr.Close()

	_, _, err := store.CheckAndSet(context.Background(), "k", nil, time.Minute)
	assert.Error(t, err)
}
