package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"

	"github.com/google/uuid"
)

type PostgresAllocationsRepository struct {
	db *sql.DB
}

func NewPostgresAllocationsRepository(db *sql.DB) *PostgresAllocationsRepository {
	return &PostgresAllocationsRepository{db: db}
}

// ListForCellRange 获取某单元 [from, to] 的全部分配记录
func (r *PostgresAllocationsRepository) ListForCellRange(ctx context.Context, tenantID, cellID string, from, to time.Time) ([]*domain.DayAllocation, error) {
	q := `
		SELECT
			allocation_id::text,
			tenant_id::text,
			operation_id::text,
			cell_id::text,
			date,
			hours_allocated,
			created_at
		FROM day_allocations
		WHERE tenant_id = $1 AND cell_id = $2
		  AND date >= $3::date AND date <= $4::date
		ORDER BY date, operation_id
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID, cellID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.DayAllocation{}
	for rows.Next() {
		var a domain.DayAllocation
		if err := rows.Scan(
			&a.AllocationID,
			&a.TenantID,
			&a.OperationID,
			&a.CellID,
			&a.Date,
			&a.HoursAllocated,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Upsert 写入/更新一条分配记录（排程快照导入）
// (tenant, operation, cell, date) 唯一；重复导入更新 hours_allocated。
func (r *PostgresAllocationsRepository) Upsert(ctx context.Context, a *domain.DayAllocation) error {
	if a.AllocationID == "" {
		a.AllocationID = uuid.New().String()
	}
	q := `
		INSERT INTO day_allocations (allocation_id, tenant_id, operation_id, cell_id, date, hours_allocated)
		VALUES ($1, $2, $3, $4, $5::date, $6)
		ON CONFLICT (tenant_id, operation_id, cell_id, date)
		DO UPDATE SET hours_allocated = EXCLUDED.hours_allocated
	`
	_, err := r.db.ExecContext(ctx, q,
		a.AllocationID,
		a.TenantID,
		a.OperationID,
		a.CellID,
		a.Date,
		a.HoursAllocated,
	)
	return err
}
