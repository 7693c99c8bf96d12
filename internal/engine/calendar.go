package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"
)

// DateLayout 对外接口统一使用的日期格式
const DateLayout = "2006-01-02"

// DayInfo 某日的解析结果
type DayInfo struct {
	Date       string  `json:"date"`
	Type       string  `json:"type"`
	Label      string  `json:"label,omitempty"`
	Multiplier float64 `json:"multiplier"`
}

// CalendarResolver 工厂日历解析器
// 解析是全函数且确定的：每个 (tenant, date) 恰好映射到一个 {type, multiplier}。
type CalendarResolver struct {
	engine *Engine
}

// NewCalendarResolver 创建日历解析器
func NewCalendarResolver(engine *Engine) *CalendarResolver {
	return &CalendarResolver{engine: engine}
}

// ParseDate 解析 YYYY-MM-DD；失败返回 ErrInvalidDate（绝不静默回退到今天）
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Resolve 解析字符串日期
func (r *CalendarResolver) Resolve(ctx context.Context, tenantID, dateStr string) (*DayInfo, error) {
	date, err := ParseDate(dateStr)
	if err != nil {
		return nil, err
	}
	return r.ResolveDate(ctx, tenantID, date)
}

// ResolveDate 解析某日：覆盖条目优先，否则落到工作日掩码
func (r *CalendarResolver) ResolveDate(ctx context.Context, tenantID string, date time.Time) (*DayInfo, error) {
	override, err := r.engine.calendarRepo.GetDay(ctx, tenantID, date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, sourceErr("calendar.GetDay", err)
	}

	mask, err := r.engine.calendarRepo.WorkingDaysMask(ctx, tenantID)
	if err != nil {
		return nil, sourceErr("calendar.WorkingDaysMask", err)
	}

	return resolveWith(override, mask, date), nil
}

// resolveWith 纯函数核心：不访问任何外部状态
func resolveWith(override *domain.CalendarDay, mask domain.WorkingDaysMask, date time.Time) *DayInfo {
	info := &DayInfo{Date: date.Format(DateLayout)}

	// 显式覆盖永远优先，day_type 与 multiplier 原样返回
	if override != nil {
		info.Type = override.DayType
		info.Multiplier = override.CapacityMultiplier
		if override.Name.Valid {
			info.Label = override.Name.String
		}
		return info
	}

	if mask.IsWorkingWeekday(date.Weekday()) {
		info.Type = domain.DayTypeWorking
		info.Multiplier = 1.0
	} else {
		info.Type = domain.DayTypeWeekend
		info.Multiplier = 0.0
	}
	return info
}

// IsNonWorkingType 非工作日类型（容量分级对这些日期整体让位）
func IsNonWorkingType(dayType string) bool {
	switch dayType {
	case domain.DayTypeWeekend, domain.DayTypeClosure, domain.DayTypeHoliday:
		return true
	default:
		return false
	}
}
