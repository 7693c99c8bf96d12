package domain

import (
	"database/sql"
)

// Cell 制造单元领域模型（对应 cells 表）
// 由管理端配置，本服务只读。
type Cell struct {
	CellID              string         `db:"cell_id"`
	TenantID            string         `db:"tenant_id"`
	CellName            string         `db:"cell_name"`             // NOT NULL
	Sequence            int            `db:"sequence"`              // display order
	Color               string         `db:"color"`                 // NOT NULL, default '#888888'
	CapacityHoursPerDay float64        `db:"capacity_hours_per_day"` // nominal daily hours
	WipLimit            sql.NullInt64  `db:"wip_limit"`             // nullable: no ceiling
	EnforceLimit        bool           `db:"enforce_limit"`         // NOT NULL, default false
	WipWarningThreshold sql.NullInt64  `db:"wip_warning_threshold"` // nullable: default 80% of limit
	CreatedAt           sql.NullTime   `db:"created_at"`
	UpdatedAt           sql.NullTime   `db:"updated_at"`
}

// WarningThreshold 返回生效的 WIP 预警阈值
// 自定义阈值缺失或大于 wip_limit 时回退为 floor(wip_limit * 0.8)。
func (c *Cell) WarningThreshold() (int, bool) {
	if !c.WipLimit.Valid {
		return 0, false
	}
	limit := int(c.WipLimit.Int64)
	if c.WipWarningThreshold.Valid {
		t := int(c.WipWarningThreshold.Int64)
		if t >= 0 && t <= limit {
			return t, true
		}
		// invalid configuration: fall through to the default
	}
	return limit * 8 / 10, true
}
