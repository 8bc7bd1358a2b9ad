package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

func setupTestRedis(t *testing.T) (*Recorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRecorder(client, 24*time.Hour), mr
}

func TestRecorder_RecordLastVisitedPage(t *testing.T) {
	rec, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rec.RecordLastVisitedPage(ctx, "cust-1", "https://shop.example.com/search", "1"))

	assert.Equal(t, "https://shop.example.com/search", mr.HGet("continue_shopping:cust-1", "1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("continue_shopping:cust-1"))
}

func TestRecorder_OverwritesPerStore(t *testing.T) {
	rec, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rec.RecordLastVisitedPage(ctx, "cust-1", "/search", "1"))
	require.NoError(t, rec.RecordLastVisitedPage(ctx, "cust-1", "/search?page=2", "1"))
	require.NoError(t, rec.RecordLastVisitedPage(ctx, "cust-1", "/other-store/search", "2"))

	got, err := rec.LastVisitedPage(ctx, "cust-1", "1")
	require.NoError(t, err)
	assert.Equal(t, "/search?page=2", got)

	got, err = rec.LastVisitedPage(ctx, "cust-1", "2")
	require.NoError(t, err)
	assert.Equal(t, "/other-store/search", got)
}

func TestRecorder_LastVisitedPage_NotFound(t *testing.T) {
	rec, _ := setupTestRedis(t)

	_, err := rec.LastVisitedPage(context.Background(), "nobody", "1")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecorder_RecordFailsOnRedisError(t *testing.T) {
	rec, mr := setupTestRedis(t)
	mr.SetError("ERR server unavailable")

	err := rec.RecordLastVisitedPage(context.Background(), "cust-1", "/search", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis record last visited page")
}
