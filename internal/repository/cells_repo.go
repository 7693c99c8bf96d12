package repository

import (
	"context"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
)

// CellsRepository 制造单元仓库（本服务只读）
type CellsRepository interface {
	// GetCell 获取单元；不存在时返回 ErrNotFound
	GetCell(ctx context.Context, tenantID, cellID string) (*domain.Cell, error)
	// ListCells 按 sequence 升序返回租户的全部单元
	ListCells(ctx context.Context, tenantID string) ([]*domain.Cell, error)
}

// PartsRepository 零件仓库（仅用于 WIP 计数）
type PartsRepository interface {
	// CountAtCell 统计当前位于/排队于该单元的零件数（current_wip）
	CountAtCell(ctx context.Context, tenantID, cellID string) (int, error)
}
