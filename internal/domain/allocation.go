package domain

import (
	"database/sql"
	"time"
)

// DayAllocation 某工序在某单元某日的显式工时承诺（对应 day_allocations 表）
// 存在该记录时，它是容量占用的权威数据源。
type DayAllocation struct {
	AllocationID   string       `db:"allocation_id"`
	TenantID       string       `db:"tenant_id"`
	OperationID    string       `db:"operation_id"`
	CellID         string       `db:"cell_id"`
	Date           time.Time    `db:"date"` // date only, UTC midnight
	HoursAllocated float64      `db:"hours_allocated"` // >= 0
	CreatedAt      sql.NullTime `db:"created_at"`
}
