package repository

import (
	"context"
	"database/sql"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
)

type PostgresCellsRepository struct {
	db *sql.DB
}

func NewPostgresCellsRepository(db *sql.DB) *PostgresCellsRepository {
	return &PostgresCellsRepository{db: db}
}

const cellColumns = `
	cell_id::text,
	tenant_id::text,
	cell_name,
	sequence,
	color,
	capacity_hours_per_day,
	wip_limit,
	enforce_limit,
	wip_warning_threshold,
	created_at,
	updated_at
`

func scanCell(row interface{ Scan(...any) error }) (*domain.Cell, error) {
	var c domain.Cell
	err := row.Scan(
		&c.CellID,
		&c.TenantID,
		&c.CellName,
		&c.Sequence,
		&c.Color,
		&c.CapacityHoursPerDay,
		&c.WipLimit,
		&c.EnforceLimit,
		&c.WipWarningThreshold,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCell 获取单元
func (r *PostgresCellsRepository) GetCell(ctx context.Context, tenantID, cellID string) (*domain.Cell, error) {
	q := `
		SELECT ` + cellColumns + `
		FROM cells
		WHERE tenant_id = $1 AND cell_id = $2
	`
	c, err := scanCell(r.db.QueryRowContext(ctx, q, tenantID, cellID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListCells 按 sequence 升序返回租户全部单元
func (r *PostgresCellsRepository) ListCells(ctx context.Context, tenantID string) ([]*domain.Cell, error) {
	if tenantID == "" {
		return []*domain.Cell{}, nil
	}
	q := `
		SELECT ` + cellColumns + `
		FROM cells
		WHERE tenant_id = $1
		ORDER BY sequence, cell_name
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Cell{}
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type PostgresPartsRepository struct {
	db *sql.DB
}

func NewPostgresPartsRepository(db *sql.DB) *PostgresPartsRepository {
	return &PostgresPartsRepository{db: db}
}

// CountAtCell 统计当前位于该单元的零件数
func (r *PostgresPartsRepository) CountAtCell(ctx context.Context, tenantID, cellID string) (int, error) {
	q := `
		SELECT COUNT(*)
		FROM parts
		WHERE tenant_id = $1 AND current_cell_id = $2
	`
	var n int
	if err := r.db.QueryRowContext(ctx, q, tenantID, cellID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
