package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/config"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/consumer"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/engine"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SchedulerAllocation 排程器快照里的一条日分配
type SchedulerAllocation struct {
	OperationID    string  `json:"operation_id"`
	CellID         string  `json:"cell_id"`
	Date           string  `json:"date"` // YYYY-MM-DD
	HoursAllocated float64 `json:"hours_allocated"`
}

// SchedulerResponse 排程器 API 响应信封
type SchedulerResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// SchedulerClient 外部前向排程服务客户端（只读拉取）
type SchedulerClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewSchedulerClient 创建排程器客户端
func NewSchedulerClient(cfg *config.SchedulerConfig, logger *zap.Logger) *SchedulerClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &SchedulerClient{
		httpClient: client,
		logger:     logger,
	}
}

// FetchAllocations 拉取租户 [from, to] 的日分配快照
func (c *SchedulerClient) FetchAllocations(ctx context.Context, tenantID, from, to string) ([]SchedulerAllocation, error) {
	c.logger.Info("fetching allocations from scheduler",
		zap.String("tenant_id", tenantID),
		zap.String("from", from),
		zap.String("to", to),
	)

	var response SchedulerResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"tenant_id": tenantID,
			"from":      from,
			"to":        to,
		}).
		SetResult(&response).
		Get("/api/v1/schedule/allocations")
	if err != nil {
		return nil, fmt.Errorf("failed to call scheduler API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scheduler API returned HTTP %d", resp.StatusCode())
	}
	if response.Status != 0 {
		return nil, fmt.Errorf("scheduler API error: %s (status: %d)", response.Msg, response.Status)
	}

	var allocations []SchedulerAllocation
	if err := json.Unmarshal(response.Data, &allocations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allocations: %w", err)
	}

	c.logger.Info("retrieved allocations from scheduler",
		zap.Int("allocation_count", len(allocations)),
	)
	return allocations, nil
}

// SchedulerSync 排程快照同步器
// 定期把排程器的日分配快照写入 day_allocations，并对受影响的
// 单元发布变更通知。
type SchedulerSync struct {
	config     *config.Config
	client     *SchedulerClient
	allocRepo  repository.AllocationsRepository
	redisCli   *redis.Client // nil: 不发布变更通知
	logger     *zap.Logger
	tenantID   string
	windowDays int
}

// NewSchedulerSync 创建同步器
func NewSchedulerSync(
	cfg *config.Config,
	client *SchedulerClient,
	allocRepo repository.AllocationsRepository,
	redisCli *redis.Client,
	tenantID string,
	windowDays int,
	logger *zap.Logger,
) *SchedulerSync {
	if windowDays < 1 {
		windowDays = 14
	}
	return &SchedulerSync{
		config:     cfg,
		client:     client,
		allocRepo:  allocRepo,
		redisCli:   redisCli,
		logger:     logger,
		tenantID:   tenantID,
		windowDays: windowDays,
	}
}

// SyncOnce 拉取一次快照并落库
func (s *SchedulerSync) SyncOnce(ctx context.Context) error {
	from := time.Now().UTC().Format(engine.DateLayout)
	to := time.Now().UTC().AddDate(0, 0, s.windowDays-1).Format(engine.DateLayout)

	allocations, err := s.client.FetchAllocations(ctx, s.tenantID, from, to)
	if err != nil {
		return err
	}

	touchedCells := map[string]bool{}
	for _, a := range allocations {
		date, err := engine.ParseDate(a.Date)
		if err != nil {
			s.logger.Warn("skipping allocation with bad date",
				zap.String("operation_id", a.OperationID),
				zap.String("date", a.Date),
			)
			continue
		}
		err = s.allocRepo.Upsert(ctx, &domain.DayAllocation{
			TenantID:       s.tenantID,
			OperationID:    a.OperationID,
			CellID:         a.CellID,
			Date:           date,
			HoursAllocated: a.HoursAllocated,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert allocation: %w", err)
		}
		touchedCells[a.CellID] = true
	}

	if s.redisCli != nil {
		for cellID := range touchedCells {
			ev := &consumer.ChangeEvent{
				TenantID: s.tenantID,
				Kind:     consumer.ChangeAllocation,
				CellID:   cellID,
			}
			if err := consumer.PublishChange(ctx, s.redisCli, s.config.Flow.ChangeStream, ev); err != nil {
				s.logger.Error("failed to publish change event",
					zap.String("cell_id", cellID),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("scheduler snapshot synced",
		zap.Int("allocation_count", len(allocations)),
		zap.Int("cell_count", len(touchedCells)),
	)
	return nil
}

// Start 按固定间隔同步（阻塞直到 ctx 取消）
func (s *SchedulerSync) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Error("initial scheduler sync failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler sync stopped")
			return nil
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Error("scheduler sync failed", zap.Error(err))
			}
		}
	}
}
