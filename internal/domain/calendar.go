package domain

import (
	"database/sql"
	"time"
)

// 日类型（calendar_days.day_type 取值；weekend 仅为推导结果，不落库）
const (
	DayTypeWorking = "working"
	DayTypeHoliday = "holiday"
	DayTypeClosure = "closure"
	DayTypeHalfDay = "half_day"
	DayTypeWeekend = "weekend"
)

// CalendarDay 工厂日历覆盖条目（对应 calendar_days 表）
// 每个 (tenant, date) 至多一条；缺失表示使用默认工作日模式。
type CalendarDay struct {
	TenantID           string         `db:"tenant_id"`
	Date               time.Time      `db:"date"` // date only, UTC midnight
	DayType            string         `db:"day_type"`
	Name               sql.NullString `db:"name"`       // nullable label ("May Day")
	OpenTime           sql.NullString `db:"open_time"`  // nullable "HH:MM" override
	CloseTime          sql.NullString `db:"close_time"` // nullable "HH:MM" override
	CapacityMultiplier float64        `db:"capacity_multiplier"`
	Notes              sql.NullString `db:"notes"`
}

// WorkingDaysMask 租户默认工作日位掩码
// 位定义与存量配置保持一致：Mon=1 Tue=2 Wed=4 Thu=8 Fri=16 Sat=32 Sun=64。
type WorkingDaysMask int

// DefaultWorkingDaysMask 周一至周五
const DefaultWorkingDaysMask WorkingDaysMask = 31

// IsWorkingWeekday 判断某个星期几是否为默认工作日
// 位运算集中在这里，调用方不展开位逻辑。
func (m WorkingDaysMask) IsWorkingWeekday(wd time.Weekday) bool {
	var bit int
	if wd == time.Sunday {
		bit = 64
	} else {
		bit = 1 << (int(wd) - 1)
	}
	return int(m)&bit != 0
}
