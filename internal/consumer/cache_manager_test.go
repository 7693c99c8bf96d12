package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/config"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/engine"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestCache(t *testing.T) (*redis.Client, *FlowCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.Flow.CapacityCacheTTL = time.Minute
	cfg.Flow.WipCacheTTL = 10 * time.Second

	return client, NewFlowCache(cfg, store.NewRedisKV(client), zap.NewNop())
}

func TestFlowCache_CapacityRoundTrip(t *testing.T) {
	_, cache := setupTestCache(t)
	ctx := context.Background()

	loads := []*engine.CellLoad{
		{CellID: "cell-weld", Date: "2025-06-04", HoursCapacity: 8, HoursCommitted: 6, Percent: 75, Band: engine.BandMedium, Source: engine.SourceAllocations},
	}
	require.NoError(t, cache.SetCapacity(ctx, "tenant-1", "cell-weld", "2025-06-04", 1, loads))

	got, err := cache.GetCapacity(ctx, "tenant-1", "cell-weld", "2025-06-04", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 75.0, got[0].Percent)
	assert.Equal(t, engine.SourceAllocations, got[0].Source)
}

func TestFlowCache_CapacityMiss(t *testing.T) {
	_, cache := setupTestCache(t)

	_, err := cache.GetCapacity(context.Background(), "tenant-1", "cell-ghost", "2025-06-04", 1)
	assert.ErrorIs(t, err, store.ErrMiss)
}

func TestFlowCache_WipRoundTrip(t *testing.T) {
	_, cache := setupTestCache(t)
	ctx := context.Background()

	limit := 3
	m := &engine.WipMetrics{CellID: "cell-weld", CurrentWip: 2, WipLimit: &limit, EnforceLimit: true, WarningThreshold: 2, ShowWarning: true}
	require.NoError(t, cache.SetWip(ctx, "tenant-1", "cell-weld", m))

	got, err := cache.GetWip(ctx, "tenant-1", "cell-weld")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentWip)
	require.NotNil(t, got.WipLimit)
	assert.Equal(t, 3, *got.WipLimit)
	assert.True(t, got.ShowWarning)
}

func TestFlowCache_InvalidateCell(t *testing.T) {
	_, cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetCapacity(ctx, "tenant-1", "cell-weld", "2025-06-04", 7, []*engine.CellLoad{}))
	require.NoError(t, cache.SetWip(ctx, "tenant-1", "cell-weld", &engine.WipMetrics{CellID: "cell-weld"}))
	// 其他单元的缓存不受影响
	require.NoError(t, cache.SetWip(ctx, "tenant-1", "cell-cut", &engine.WipMetrics{CellID: "cell-cut"}))

	require.NoError(t, cache.InvalidateCell(ctx, "tenant-1", "cell-weld"))

	_, err := cache.GetCapacity(ctx, "tenant-1", "cell-weld", "2025-06-04", 7)
	assert.ErrorIs(t, err, store.ErrMiss)
	_, err = cache.GetWip(ctx, "tenant-1", "cell-weld")
	assert.ErrorIs(t, err, store.ErrMiss)

	_, err = cache.GetWip(ctx, "tenant-1", "cell-cut")
	assert.NoError(t, err)
}

func TestFlowCache_InvalidateTenant(t *testing.T) {
	_, cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetCapacity(ctx, "tenant-1", "cell-weld", "2025-06-04", 1, []*engine.CellLoad{}))
	require.NoError(t, cache.SetWip(ctx, "tenant-1", "cell-cut", &engine.WipMetrics{CellID: "cell-cut"}))
	require.NoError(t, cache.SetWip(ctx, "tenant-2", "cell-weld", &engine.WipMetrics{CellID: "cell-weld"}))

	require.NoError(t, cache.InvalidateTenant(ctx, "tenant-1"))

	_, err := cache.GetCapacity(ctx, "tenant-1", "cell-weld", "2025-06-04", 1)
	assert.ErrorIs(t, err, store.ErrMiss)
	_, err = cache.GetWip(ctx, "tenant-1", "cell-cut")
	assert.ErrorIs(t, err, store.ErrMiss)

	// 其他租户不受影响
	_, err = cache.GetWip(ctx, "tenant-2", "cell-weld")
	assert.NoError(t, err)
}
