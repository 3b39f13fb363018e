package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "lock:variant:SKU-9", VariantLockKey("SKU-9"))
	assert.Equal(t, "dedup:worker:ev-1", DedupKey("worker", "ev-1"))
	assert.Equal(t, 600*time.Second, TTLVariantLock)
}

func TestMarkOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr(), 0)
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	first, err := MarkOnce(ctx, rdb, "dedup:x:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := MarkOnce(ctx, rdb, "dedup:x:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(time.Minute)
	first, err = MarkOnce(ctx, rdb, "dedup:x:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}
