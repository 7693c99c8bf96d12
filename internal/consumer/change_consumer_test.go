package consumer

import (
	"context"
	"sync"
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

type stubBroadcaster struct {
	mu     sync.Mutex
	events []interface{}
}

func (s *stubBroadcaster) BroadcastJSON(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, v)
}

func (s *stubBroadcaster) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestChangeConsumer_InvalidatesOnAllocationEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.Flow.CapacityCacheTTL = time.Minute
	cfg.Flow.WipCacheTTL = time.Minute
	cfg.Flow.ChangeStream = "flow:changes"
	cfg.Flow.ConsumerGroup = "eryxon-flow"
	cfg.Flow.ConsumerName = "test-consumer"

	cache := NewFlowCache(cfg, store.NewRedisKV(client), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, cache.SetWip(ctx, "tenant-1", "cell-weld", &engine.WipMetrics{CellID: "cell-weld"}))

	hub := &stubBroadcaster{}
	c := NewChangeConsumer(cfg, client, cache, hub, zap.NewNop())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = c.Start(runCtx)
		close(done)
	}()

	require.NoError(t, PublishChange(ctx, client, cfg.Flow.ChangeStream, &ChangeEvent{
		TenantID: "tenant-1",
		Kind:     ChangeAllocation,
		CellID:   "cell-weld",
	}))

	require.Eventually(t, func() bool {
		_, err := cache.GetWip(ctx, "tenant-1", "cell-weld")
		return err == store.ErrMiss
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, 1, hub.count())

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestChangeConsumer_CalendarEventInvalidatesTenant(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.Flow.CapacityCacheTTL = time.Minute
	cfg.Flow.WipCacheTTL = time.Minute
	cfg.Flow.ChangeStream = "flow:changes"
	cfg.Flow.ConsumerGroup = "eryxon-flow"
	cfg.Flow.ConsumerName = "test-consumer"

	cache := NewFlowCache(cfg, store.NewRedisKV(client), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, cache.SetWip(ctx, "tenant-1", "cell-a", &engine.WipMetrics{CellID: "cell-a"}))
	require.NoError(t, cache.SetWip(ctx, "tenant-1", "cell-b", &engine.WipMetrics{CellID: "cell-b"}))

	c := NewChangeConsumer(cfg, client, cache, nil, zap.NewNop())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = c.Start(runCtx) }()

	require.NoError(t, PublishChange(ctx, client, cfg.Flow.ChangeStream, &ChangeEvent{
		TenantID: "tenant-1",
		Kind:     ChangeCalendar,
	}))

	require.Eventually(t, func() bool {
		_, errA := cache.GetWip(ctx, "tenant-1", "cell-a")
		_, errB := cache.GetWip(ctx, "tenant-1", "cell-b")
		return errA == store.ErrMiss && errB == store.ErrMiss
	}, 3*time.Second, 20*time.Millisecond)
}
