package domain

import (
	"database/sql"
)

// Part 零件领域模型（对应 parts 表）
// current_cell_id 跟踪零件当前所在/排队的单元，是 WIP 计数的依据；
// job_id 把零件归到作业（jobs 表本身由 CRUD 面维护，这里只引用外键）。
type Part struct {
	PartID        string         `db:"part_id"`
	TenantID      string         `db:"tenant_id"`
	JobID         string         `db:"job_id"`
	PartNumber    string         `db:"part_number"`
	Quantity      int            `db:"quantity"`
	CurrentCellID sql.NullString `db:"current_cell_id"` // nullable: not yet routed
}
