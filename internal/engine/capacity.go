package engine

import (
	"context"
	"errors"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"

	"go.uber.org/zap"
)

// CapacitySource 容量占用的数据来源（显式标记，测试可直接断言走了哪条路径）
type CapacitySource string

const (
	SourceAllocations CapacitySource = "allocations" // day_allocations 权威记录
	SourceOperations  CapacitySource = "operations"  // 按工序计划区间推断
	SourceNone        CapacitySource = "none"        // 该日无任何占用数据
)

// 负载分级（供矩阵视图着色；非工作日整体让位为 non-working）
const (
	BandEmpty      = "empty"
	BandLow        = "low"
	BandMedium     = "medium"
	BandHigh       = "high"
	BandOver       = "over"
	BandNonWorking = "non-working"
)

// CellLoad 某单元某日的容量负载
type CellLoad struct {
	CellID         string         `json:"cell_id"`
	CellName       string         `json:"cell_name"`
	Date           string         `json:"date"`
	DayType        string         `json:"day_type"`
	DayLabel       string         `json:"day_label,omitempty"`
	HoursCapacity  float64        `json:"hours_capacity"`
	HoursCommitted float64        `json:"hours_committed"`
	Percent        float64        `json:"percent"` // 不封顶，过载必须以 >100 可见
	Band           string         `json:"band"`
	Source         CapacitySource `json:"source"`
}

// CapacityAggregator 单元容量聚合器
type CapacityAggregator struct {
	engine *Engine
}

// NewCapacityAggregator 创建容量聚合器
func NewCapacityAggregator(engine *Engine) *CapacityAggregator {
	return &CapacityAggregator{engine: engine}
}

// CellLoad 单日负载
func (a *CapacityAggregator) CellLoad(ctx context.Context, tenantID, cellID string, date time.Time) (*CellLoad, error) {
	loads, err := a.CapacityForRange(ctx, tenantID, cellID, date, 1)
	if err != nil {
		return nil, err
	}
	return loads[0], nil
}

// CapacityForRange 从 start 起连续 days 天的负载
//
// 数据源规则：day_allocations 是权威来源。仅当该单元在整个查询区间内
// 没有任何分配记录时（分配表对该租户/单元未投入使用），才回退到按
// 工序计划区间推断；区间内有记录而某日没有，该日就是真实的空闲日。
func (a *CapacityAggregator) CapacityForRange(ctx context.Context, tenantID, cellID string, start time.Time, days int) ([]*CellLoad, error) {
	if days < 1 {
		days = 1
	}
	end := start.AddDate(0, 0, days-1)

	cell, err := a.engine.cellsRepo.GetCell(ctx, tenantID, cellID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 容量是展示性数据：单元不存在给零值，不报错
			a.engine.logger.Debug("capacity for unknown cell, returning zero load",
				zap.String("tenant_id", tenantID),
				zap.String("cell_id", cellID),
			)
			cell = nil
		} else {
			return nil, sourceErr("cells.GetCell", err)
		}
	}

	mask, err := a.engine.calendarRepo.WorkingDaysMask(ctx, tenantID)
	if err != nil {
		return nil, sourceErr("calendar.WorkingDaysMask", err)
	}

	overrides := map[string]*domain.CalendarDay{}
	calDays, err := a.engine.calendarRepo.ListRange(ctx, tenantID, start, end)
	if err != nil {
		return nil, sourceErr("calendar.ListRange", err)
	}
	for _, d := range calDays {
		overrides[d.Date.Format(DateLayout)] = d
	}

	capacityPerDay := 0.0
	allocSum := map[string]float64{}
	allocCount := map[string]int{}
	hasAlloc := false
	if cell != nil {
		capacityPerDay = cell.CapacityHoursPerDay
		if capacityPerDay < 0 {
			// 配置错误按零容量处理，不让整个计算失败
			a.engine.logger.Warn("negative capacity_hours_per_day, treating as zero",
				zap.String("cell_id", cellID),
				zap.Float64("capacity_hours_per_day", capacityPerDay),
			)
			capacityPerDay = 0
		}

		allocs, err := a.engine.allocRepo.ListForCellRange(ctx, tenantID, cellID, start, end)
		if err != nil {
			return nil, sourceErr("allocations.ListForCellRange", err)
		}
		hasAlloc = len(allocs) > 0
		for _, al := range allocs {
			key := al.Date.Format(DateLayout)
			allocSum[key] += al.HoursAllocated
			allocCount[key]++
		}
	}

	out := make([]*CellLoad, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(DateLayout)
		info := resolveWith(overrides[key], mask, day)

		load := &CellLoad{
			CellID:        cellID,
			Date:          key,
			DayType:       info.Type,
			DayLabel:      info.Label,
			HoursCapacity: capacityPerDay * info.Multiplier,
			Source:        SourceNone,
		}
		if cell != nil {
			load.CellName = cell.CellName
		}

		switch {
		case allocCount[key] > 0:
			load.HoursCommitted = allocSum[key]
			load.Source = SourceAllocations
		case cell != nil && !hasAlloc:
			ops, err := a.engine.opsRepo.ListPlannedForCellDate(ctx, tenantID, cellID, day)
			if err != nil {
				return nil, sourceErr("operations.ListPlannedForCellDate", err)
			}
			if len(ops) > 0 {
				minutes := 0
				for _, op := range ops {
					minutes += op.EstimatedTime
				}
				load.HoursCommitted = float64(minutes) / 60.0
				load.Source = SourceOperations
			}
		}

		load.Percent = percentOf(load.HoursCommitted, load.HoursCapacity)
		if IsNonWorkingType(info.Type) {
			load.Band = BandNonWorking
		} else {
			load.Band = bandFor(load.Percent)
		}
		out = append(out, load)
	}

	return out, nil
}

func percentOf(committed, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return committed / capacity * 100
}

func bandFor(percent float64) string {
	switch {
	case percent <= 0:
		return BandEmpty
	case percent <= 50:
		return BandLow
	case percent <= 80:
		return BandMedium
	case percent <= 100:
		return BandHigh
	default:
		return BandOver
	}
}
