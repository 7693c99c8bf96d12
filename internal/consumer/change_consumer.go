package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/config"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/redisx"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 变更事件类型（flow:changes 消息的 kind 取值）
const (
	ChangeAllocation = "allocation" // day_allocations 写入/更新
	ChangeOperation  = "operation"  // 工序状态或计划区间变更
	ChangePart       = "part"       // 零件移动（current_cell_id 变更）
	ChangeCalendar   = "calendar"   // 日历覆盖或工作日掩码变更
	ChangeCell       = "cell"       // 单元配置变更（容量、WIP 上限）
)

// ChangeEvent 上游写路径发布的变更通知
// CellID 对 calendar 事件可为空（影响整个租户）。
type ChangeEvent struct {
	TenantID string `json:"tenant_id"`
	Kind     string `json:"kind"`
	CellID   string `json:"cell_id,omitempty"`
	JobID    string `json:"job_id,omitempty"`
	Date     string `json:"date,omitempty"`
}

// PublishChange 发布变更通知到 flow:changes
func PublishChange(ctx context.Context, client *redis.Client, stream string, ev *ChangeEvent) error {
	_, err := redisx.PublishJSONToStream(ctx, client, stream, ev)
	return err
}

// Broadcaster 推送通道（WebSocket hub 实现；测试用打桩）
type Broadcaster interface {
	BroadcastJSON(v interface{})
}

// ChangeConsumer 变更通知消费者
// 消费 flow:changes：按事件范围打掉缓存，并把事件转发给推送通道，
// 让看板客户端自行决定刷新哪些视图。
type ChangeConsumer struct {
	config *config.Config
	client *redis.Client
	cache  *FlowCache
	hub    Broadcaster
	logger *zap.Logger
}

// NewChangeConsumer 创建变更消费者
func NewChangeConsumer(
	cfg *config.Config,
	client *redis.Client,
	cache *FlowCache,
	hub Broadcaster,
	logger *zap.Logger,
) *ChangeConsumer {
	return &ChangeConsumer{
		config: cfg,
		client: client,
		cache:  cache,
		hub:    hub,
		logger: logger,
	}
}

// Start 启动消费循环（阻塞直到 ctx 取消）
func (c *ChangeConsumer) Start(ctx context.Context) error {
	stream := c.config.Flow.ChangeStream
	group := c.config.Flow.ConsumerGroup

	if err := redisx.CreateConsumerGroup(ctx, c.client, stream, group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("change consumer started",
		zap.String("stream", stream),
		zap.String("group", group),
		zap.String("consumer", c.config.Flow.ConsumerName),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("change consumer stopped")
			return nil
		default:
		}

		messages, err := redisx.ReadFromStream(ctx, c.client, stream, group, c.config.Flow.ConsumerName, 16)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to read change stream", zap.Error(err))
			continue
		}

		for _, msg := range messages {
			if err := c.handleMessage(ctx, &msg); err != nil {
				c.logger.Error("failed to handle change event",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
				// 处理失败也 ack：事件只是失效提示，TTL 会兜底
			}
			if err := redisx.AckMessage(ctx, c.client, stream, group, msg.ID); err != nil {
				c.logger.Error("failed to ack message",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
		}
	}
}

func (c *ChangeConsumer) handleMessage(ctx context.Context, msg *redisx.StreamMessage) error {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return fmt.Errorf("message %s has no data field", msg.ID)
	}

	var ev ChangeEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return fmt.Errorf("failed to unmarshal change event: %w", err)
	}
	if ev.TenantID == "" {
		return fmt.Errorf("change event %s has no tenant_id", msg.ID)
	}

	switch ev.Kind {
	case ChangeCalendar:
		if err := c.cache.InvalidateTenant(ctx, ev.TenantID); err != nil {
			return err
		}
	case ChangeAllocation, ChangeOperation, ChangePart, ChangeCell:
		if ev.CellID == "" {
			if err := c.cache.InvalidateTenant(ctx, ev.TenantID); err != nil {
				return err
			}
		} else if err := c.cache.InvalidateCell(ctx, ev.TenantID, ev.CellID); err != nil {
			return err
		}
	default:
		c.logger.Warn("unknown change kind, invalidating tenant",
			zap.String("kind", ev.Kind),
			zap.String("tenant_id", ev.TenantID),
		)
		if err := c.cache.InvalidateTenant(ctx, ev.TenantID); err != nil {
			return err
		}
	}

	if c.hub != nil {
		c.hub.BroadcastJSON(&ev)
	}
	return nil
}
