package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/config"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/engine"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/store"

	"go.uber.org/zap"
)

// FlowCache 计算结果缓存管理器
// 缓存的是引擎的计算结果而不是底层行：失效按单元整体打掉，
// 下一次读取重新计算。容量和 WIP 分开设 TTL（WIP 时效要求更高）。
type FlowCache struct {
	config *config.Config
	kv     store.KV
	logger *zap.Logger
}

// NewFlowCache 创建缓存管理器
func NewFlowCache(cfg *config.Config, kv store.KV, logger *zap.Logger) *FlowCache {
	return &FlowCache{
		config: cfg,
		kv:     kv,
		logger: logger,
	}
}

func capacityKey(tenantID, cellID, date string, days int) string {
	return fmt.Sprintf("flow:capacity:%s:%s:%s:%d", tenantID, cellID, date, days)
}

func wipKey(tenantID, cellID string) string {
	return fmt.Sprintf("flow:wip:%s:%s", tenantID, cellID)
}

// GetCapacity 读取容量区间缓存；未命中返回 store.ErrMiss
func (c *FlowCache) GetCapacity(ctx context.Context, tenantID, cellID, date string, days int) ([]*engine.CellLoad, error) {
	val, err := c.kv.Get(ctx, capacityKey(tenantID, cellID, date, days))
	if err != nil {
		return nil, err
	}
	var loads []*engine.CellLoad
	if err := json.Unmarshal([]byte(val), &loads); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached capacity: %w", err)
	}
	return loads, nil
}

// SetCapacity 写入容量区间缓存
func (c *FlowCache) SetCapacity(ctx context.Context, tenantID, cellID, date string, days int, loads []*engine.CellLoad) error {
	jsonData, err := json.Marshal(loads)
	if err != nil {
		return fmt.Errorf("failed to marshal capacity: %w", err)
	}
	return c.kv.Set(ctx, capacityKey(tenantID, cellID, date, days), string(jsonData), c.config.Flow.CapacityCacheTTL)
}

// GetWip 读取 WIP 指标缓存；未命中返回 store.ErrMiss
func (c *FlowCache) GetWip(ctx context.Context, tenantID, cellID string) (*engine.WipMetrics, error) {
	val, err := c.kv.Get(ctx, wipKey(tenantID, cellID))
	if err != nil {
		return nil, err
	}
	var m engine.WipMetrics
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached wip: %w", err)
	}
	return &m, nil
}

// SetWip 写入 WIP 指标缓存
func (c *FlowCache) SetWip(ctx context.Context, tenantID, cellID string, m *engine.WipMetrics) error {
	jsonData, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal wip: %w", err)
	}
	return c.kv.Set(ctx, wipKey(tenantID, cellID), string(jsonData), c.config.Flow.WipCacheTTL)
}

// InvalidateCell 打掉某单元的全部缓存（容量所有区间 + WIP）
func (c *FlowCache) InvalidateCell(ctx context.Context, tenantID, cellID string) error {
	pattern := fmt.Sprintf("flow:capacity:%s:%s:*", tenantID, cellID)
	keys, err := c.kv.ScanKeys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to scan capacity keys: %w", err)
	}
	keys = append(keys, wipKey(tenantID, cellID))
	if err := c.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}

	c.logger.Debug("invalidated cell cache",
		zap.String("tenant_id", tenantID),
		zap.String("cell_id", cellID),
		zap.Int("key_count", len(keys)),
	)
	return nil
}

// InvalidateTenant 打掉租户的全部缓存（日历或掩码变更影响所有单元）
func (c *FlowCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	var keys []string
	for _, pattern := range []string{
		fmt.Sprintf("flow:capacity:%s:*", tenantID),
		fmt.Sprintf("flow:wip:%s:*", tenantID),
	} {
		k, err := c.kv.ScanKeys(ctx, pattern)
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, k...)
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}

	c.logger.Debug("invalidated tenant cache",
		zap.String("tenant_id", tenantID),
		zap.Int("key_count", len(keys)),
	)
	return nil
}
