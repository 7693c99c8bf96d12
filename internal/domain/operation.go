package domain

import (
	"database/sql"
)

// 工序状态（operations.status 取值）
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on_hold"
)

// Operation 工序领域模型（对应 operations 表）
// 属于某个零件，绑定唯一单元；planned_start/planned_end 由外部排程器写入。
type Operation struct {
	OperationID   string         `db:"operation_id"`
	TenantID      string         `db:"tenant_id"`
	PartID        string         `db:"part_id"`
	CellID        string         `db:"cell_id"`
	CellName      string         `db:"cell_name"` // joined from cells, not a column
	OperationName sql.NullString `db:"operation_name"`
	Sequence      int            `db:"sequence"` // position within the part routing
	Status        string         `db:"status"`
	EstimatedTime int            `db:"estimated_time"` // minutes
	PlannedStart  sql.NullTime   `db:"planned_start"`
	PlannedEnd    sql.NullTime   `db:"planned_end"`
	CreatedAt     sql.NullTime   `db:"created_at"`
}

// IsCompleted 工序是否已完成
func (o *Operation) IsCompleted() bool {
	return o.Status == StatusCompleted
}

// CanTransition 校验工序状态迁移
// not_started → in_progress → completed，in_progress ⇄ on_hold。
func CanTransition(from, to string) bool {
	switch from {
	case StatusNotStarted:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusCompleted || to == StatusOnHold
	case StatusOnHold:
		return to == StatusInProgress
	default:
		return false
	}
}
