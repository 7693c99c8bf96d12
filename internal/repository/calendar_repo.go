package repository

import (
	"context"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
)

// CalendarRepository 工厂日历仓库
type CalendarRepository interface {
	// GetDay 获取 (tenant, date) 的覆盖条目；缺失时返回 ErrNotFound
	GetDay(ctx context.Context, tenantID string, date time.Time) (*domain.CalendarDay, error)
	// ListRange 获取 [from, to] 内的全部覆盖条目（含边界）
	ListRange(ctx context.Context, tenantID string, from, to time.Time) ([]*domain.CalendarDay, error)
	// WorkingDaysMask 获取租户默认工作日掩码；未配置时返回 DefaultWorkingDaysMask
	WorkingDaysMask(ctx context.Context, tenantID string) (domain.WorkingDaysMask, error)
}

// AllocationsRepository 日工时分配仓库
type AllocationsRepository interface {
	// ListForCellRange 获取某单元 [from, to] 内的全部分配记录
	ListForCellRange(ctx context.Context, tenantID, cellID string, from, to time.Time) ([]*domain.DayAllocation, error)
	// Upsert 写入/更新一条分配记录（排程快照导入用；(operation, cell, date) 唯一）
	Upsert(ctx context.Context, a *domain.DayAllocation) error
}

// OperationsRepository 工序仓库
type OperationsRepository interface {
	// GetOperation 获取工序（带 cell_name）；不存在时返回 ErrNotFound
	GetOperation(ctx context.Context, tenantID, operationID string) (*domain.Operation, error)
	// ListByJob 获取作业全部零件的工序，按 sequence、created_at 升序
	ListByJob(ctx context.Context, tenantID, jobID string) ([]*domain.Operation, error)
	// ListPlannedForCellDate 获取计划区间覆盖指定日期的工序
	// planned_end 缺失时按 planned_start 处理。
	ListPlannedForCellDate(ctx context.Context, tenantID, cellID string, date time.Time) ([]*domain.Operation, error)
	// JobIDForPart 获取零件所属作业；零件不存在时返回 ErrNotFound
	JobIDForPart(ctx context.Context, tenantID, partID string) (string, error)
}
