package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
)

type PostgresOperationsRepository struct {
	db *sql.DB
}

func NewPostgresOperationsRepository(db *sql.DB) *PostgresOperationsRepository {
	return &PostgresOperationsRepository{db: db}
}

const operationColumns = `
	o.operation_id::text,
	o.tenant_id::text,
	o.part_id::text,
	o.cell_id::text,
	COALESCE(c.cell_name, ''),
	o.operation_name,
	o.sequence,
	o.status,
	o.estimated_time,
	o.planned_start,
	o.planned_end,
	o.created_at
`

func scanOperation(row interface{ Scan(...any) error }) (*domain.Operation, error) {
	var o domain.Operation
	err := row.Scan(
		&o.OperationID,
		&o.TenantID,
		&o.PartID,
		&o.CellID,
		&o.CellName,
		&o.OperationName,
		&o.Sequence,
		&o.Status,
		&o.EstimatedTime,
		&o.PlannedStart,
		&o.PlannedEnd,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOperation 获取工序（带 cell_name）
func (r *PostgresOperationsRepository) GetOperation(ctx context.Context, tenantID, operationID string) (*domain.Operation, error) {
	q := `
		SELECT ` + operationColumns + `
		FROM operations o
		LEFT JOIN cells c ON c.cell_id = o.cell_id AND c.tenant_id = o.tenant_id
		WHERE o.tenant_id = $1 AND o.operation_id = $2
	`
	o, err := scanOperation(r.db.QueryRowContext(ctx, q, tenantID, operationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// ListByJob 获取作业全部零件的工序
// 排序即路径排序依据：sequence 升序，同序按创建顺序稳定。
func (r *PostgresOperationsRepository) ListByJob(ctx context.Context, tenantID, jobID string) ([]*domain.Operation, error) {
	q := `
		SELECT ` + operationColumns + `
		FROM operations o
		JOIN parts p ON p.part_id = o.part_id AND p.tenant_id = o.tenant_id
		LEFT JOIN cells c ON c.cell_id = o.cell_id AND c.tenant_id = o.tenant_id
		WHERE o.tenant_id = $1 AND p.job_id = $2
		ORDER BY o.sequence, o.created_at, o.operation_id
	`
	return r.queryOperations(ctx, q, tenantID, jobID)
}

// ListPlannedForCellDate 获取计划区间覆盖指定日期的工序
// planned_end 缺失时按 planned_start 处理（单日工序）。
func (r *PostgresOperationsRepository) ListPlannedForCellDate(ctx context.Context, tenantID, cellID string, date time.Time) ([]*domain.Operation, error) {
	q := `
		SELECT ` + operationColumns + `
		FROM operations o
		LEFT JOIN cells c ON c.cell_id = o.cell_id AND c.tenant_id = o.tenant_id
		WHERE o.tenant_id = $1 AND o.cell_id = $2
		  AND o.planned_start IS NOT NULL
		  AND o.planned_start::date <= $3::date
		  AND COALESCE(o.planned_end, o.planned_start)::date >= $3::date
		ORDER BY o.planned_start, o.operation_id
	`
	return r.queryOperations(ctx, q, tenantID, cellID, date)
}

// JobIDForPart 获取零件所属作业
func (r *PostgresOperationsRepository) JobIDForPart(ctx context.Context, tenantID, partID string) (string, error) {
	q := `SELECT job_id::text FROM parts WHERE tenant_id = $1 AND part_id = $2`
	var jobID string
	err := r.db.QueryRowContext(ctx, q, tenantID, partID).Scan(&jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	return jobID, nil
}

func (r *PostgresOperationsRepository) queryOperations(ctx context.Context, q string, args ...any) ([]*domain.Operation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Operation{}
	for rows.Next() {
		o, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
