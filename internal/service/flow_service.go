package service

import (
	"context"
	"errors"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/config"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/consumer"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/engine"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/store"

	"go.uber.org/zap"
)

// CellSummary 看板单元列表项
type CellSummary struct {
	CellID              string `json:"cell_id"`
	CellName            string `json:"cell_name"`
	Sequence            int    `json:"sequence"`
	Color               string `json:"color"`
	CapacityHoursPerDay float64 `json:"capacity_hours_per_day"`
	WipLimit            *int   `json:"wip_limit"`
	EnforceLimit        bool   `json:"enforce_limit"`
}

// MatrixRow 容量矩阵中一个单元的整行
type MatrixRow struct {
	CellID   string             `json:"cell_id"`
	CellName string             `json:"cell_name"`
	Color    string             `json:"color"`
	Loads    []*engine.CellLoad `json:"loads"`
}

// CapacityMatrix 单元 × 日期的容量热力图数据
type CapacityMatrix struct {
	From  string       `json:"from"`
	Days  int          `json:"days"`
	Dates []string     `json:"dates"`
	Rows  []*MatrixRow `json:"rows"`
}

// FlowService 看板读取门面
// 引擎之上加一层 cache-aside：命中直接返回，未命中计算后回填。
// 缓存故障只降级为直接计算，绝不让读取失败。
type FlowService interface {
	ResolveDay(ctx context.Context, tenantID, date string) (*engine.DayInfo, error)
	ListCells(ctx context.Context, tenantID string) ([]*CellSummary, error)
	CellLoadRange(ctx context.Context, tenantID, cellID, date string, days int) ([]*engine.CellLoad, error)
	CapacityMatrix(ctx context.Context, tenantID, date string, days int) (*CapacityMatrix, error)
	ExportCapacityMatrix(ctx context.Context, tenantID, date string, days int) ([]byte, error)
	JobRouting(ctx context.Context, tenantID, jobID string) ([]*engine.RoutingStep, error)
	CellWip(ctx context.Context, tenantID, cellID string) (*engine.WipMetrics, error)
	CanComplete(ctx context.Context, tenantID, operationID string) (*engine.CompleteDecision, error)
}

type flowService struct {
	config    *config.Config
	engine    *engine.Engine
	cellsRepo repository.CellsRepository
	cache     *consumer.FlowCache // nil: 缓存未启用
	logger    *zap.Logger
}

// NewFlowService 创建看板服务
func NewFlowService(
	cfg *config.Config,
	eng *engine.Engine,
	cellsRepo repository.CellsRepository,
	cache *consumer.FlowCache,
	logger *zap.Logger,
) FlowService {
	return &flowService{
		config:    cfg,
		engine:    eng,
		cellsRepo: cellsRepo,
		cache:     cache,
		logger:    logger,
	}
}

func (s *flowService) ResolveDay(ctx context.Context, tenantID, date string) (*engine.DayInfo, error) {
	return s.engine.Calendar().Resolve(ctx, tenantID, date)
}

func (s *flowService) ListCells(ctx context.Context, tenantID string) ([]*CellSummary, error) {
	cells, err := s.cellsRepo.ListCells(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*CellSummary, 0, len(cells))
	for _, c := range cells {
		summary := &CellSummary{
			CellID:              c.CellID,
			CellName:            c.CellName,
			Sequence:            c.Sequence,
			Color:               c.Color,
			CapacityHoursPerDay: c.CapacityHoursPerDay,
			EnforceLimit:        c.EnforceLimit,
		}
		if c.WipLimit.Valid {
			limit := int(c.WipLimit.Int64)
			summary.WipLimit = &limit
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *flowService) CellLoadRange(ctx context.Context, tenantID, cellID, date string, days int) ([]*engine.CellLoad, error) {
	start, err := engine.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = 1
	}

	if s.cache != nil {
		loads, err := s.cache.GetCapacity(ctx, tenantID, cellID, date, days)
		if err == nil {
			return loads, nil
		}
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("capacity cache read failed, computing directly", zap.Error(err))
		}
	}

	loads, err := s.engine.Capacity().CapacityForRange(ctx, tenantID, cellID, start, days)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCapacity(ctx, tenantID, cellID, date, days, loads); err != nil {
			s.logger.Warn("capacity cache write failed", zap.Error(err))
		}
	}
	return loads, nil
}

func (s *flowService) CapacityMatrix(ctx context.Context, tenantID, date string, days int) (*CapacityMatrix, error) {
	start, err := engine.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = 1
	}
	if max := s.config.Flow.MatrixMaxDays; max > 0 && days > max {
		days = max
	}

	cells, err := s.cellsRepo.ListCells(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	matrix := &CapacityMatrix{
		From:  date,
		Days:  days,
		Dates: make([]string, 0, days),
		Rows:  make([]*MatrixRow, 0, len(cells)),
	}
	for i := 0; i < days; i++ {
		matrix.Dates = append(matrix.Dates, start.AddDate(0, 0, i).Format(engine.DateLayout))
	}

	for _, c := range cells {
		loads, err := s.CellLoadRange(ctx, tenantID, c.CellID, date, days)
		if err != nil {
			return nil, err
		}
		matrix.Rows = append(matrix.Rows, &MatrixRow{
			CellID:   c.CellID,
			CellName: c.CellName,
			Color:    c.Color,
			Loads:    loads,
		})
	}
	return matrix, nil
}

func (s *flowService) ExportCapacityMatrix(ctx context.Context, tenantID, date string, days int) ([]byte, error) {
	matrix, err := s.CapacityMatrix(ctx, tenantID, date, days)
	if err != nil {
		return nil, err
	}
	return GenerateCapacityMatrixExport(matrix)
}

func (s *flowService) JobRouting(ctx context.Context, tenantID, jobID string) ([]*engine.RoutingStep, error) {
	return s.engine.Routing().JobRouting(ctx, tenantID, jobID)
}

func (s *flowService) CellWip(ctx context.Context, tenantID, cellID string) (*engine.WipMetrics, error) {
	if s.cache != nil {
		m, err := s.cache.GetWip(ctx, tenantID, cellID)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("wip cache read failed, computing directly", zap.Error(err))
		}
	}

	m, err := s.engine.Wip().WipMetrics(ctx, tenantID, cellID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetWip(ctx, tenantID, cellID, m); err != nil {
			s.logger.Warn("wip cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

// CanComplete 完成门禁：绕过缓存直接读引擎
// 决策必须基于最新 WIP 计数，缓存里的旧值可能放过一个超限完成。
func (s *flowService) CanComplete(ctx context.Context, tenantID, operationID string) (*engine.CompleteDecision, error) {
	return s.engine.Wip().CanComplete(ctx, tenantID, operationID)
}
