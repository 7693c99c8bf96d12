package engine

import (
	"context"
	"errors"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"

	"go.uber.org/zap"
)

// 流控决策文案
const (
	ReasonNextCellAtCapacity = "next cell at capacity"
	ReasonWipUnavailable     = "wip status unavailable"
	ReasonOperationNotFound  = "operation not found"
	ReasonNotInProgress      = "operation is not in progress"
	WarningApproachingLimit  = "approaching capacity limit"
)

// WipMetrics 单个单元的 WIP 指标
type WipMetrics struct {
	CellID           string `json:"cell_id"`
	CellName         string `json:"cell_name"`
	CurrentWip       int    `json:"current_wip"`
	WipLimit         *int   `json:"wip_limit"`        // null: 无上限
	EnforceLimit     bool   `json:"enforce_limit"`
	WarningThreshold int    `json:"warning_threshold"` // 无上限时为 0
	ShowWarning      bool   `json:"show_warning"`
}

// CompleteDecision 完成动作的流控决策
// 这是建议性的展示/门禁逻辑，不是事务保证：读取 current_wip 不加锁，
// 并发完成同一下游单元可能双双放行（与数据源端行为一致，见 DESIGN.md）。
type CompleteDecision struct {
	Blocked      bool   `json:"blocked"`
	Reason       string `json:"reason,omitempty"`
	Warning      string `json:"warning,omitempty"`
	NextCellID   string `json:"next_cell_id,omitempty"`
	NextCellName string `json:"next_cell_name,omitempty"`
	CurrentWip   int    `json:"current_wip"`
	WipLimit     *int   `json:"wip_limit"`
}

// WipFlowController WIP 限额流控器
type WipFlowController struct {
	engine *Engine
}

// NewWipFlowController 创建流控器
func NewWipFlowController(engine *Engine) *WipFlowController {
	return &WipFlowController{engine: engine}
}

// WipMetrics 获取某单元的 WIP 指标
// 单元不存在时返回零指标（无上限），I/O 失败向上传播。
func (w *WipFlowController) WipMetrics(ctx context.Context, tenantID, cellID string) (*WipMetrics, error) {
	cell, err := w.engine.cellsRepo.GetCell(ctx, tenantID, cellID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &WipMetrics{CellID: cellID}, nil
		}
		return nil, sourceErr("cells.GetCell", err)
	}

	current, err := w.engine.partsRepo.CountAtCell(ctx, tenantID, cellID)
	if err != nil {
		return nil, sourceErr("parts.CountAtCell", err)
	}

	m := &WipMetrics{
		CellID:     cellID,
		CellName:   cell.CellName,
		CurrentWip: current,
	}
	if !cell.WipLimit.Valid {
		return m, nil
	}

	limit := int(cell.WipLimit.Int64)
	m.WipLimit = &limit
	m.EnforceLimit = cell.EnforceLimit

	if cell.WipWarningThreshold.Valid {
		t := int(cell.WipWarningThreshold.Int64)
		if t < 0 || t > limit {
			w.engine.logger.Warn("wip_warning_threshold out of range, using 80% of wip_limit",
				zap.String("cell_id", cellID),
				zap.Int("wip_warning_threshold", t),
				zap.Int("wip_limit", limit),
			)
		}
	}
	threshold, _ := cell.WarningThreshold()
	m.WarningThreshold = threshold
	m.ShowWarning = current >= threshold

	return m, nil
}

// CanComplete 判定完成当前工序是否应被拦截
//
// 仅在 in_progress → completed 迁移时咨询本方法。失败语义是 fail-safe：
// 数据源不可用时返回 blocked + 原因并附带错误，绝不静默放行。
func (w *WipFlowController) CanComplete(ctx context.Context, tenantID, operationID string) (*CompleteDecision, error) {
	op, err := w.engine.opsRepo.GetOperation(ctx, tenantID, operationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 过期通知（工序已删除）：按"无数据"关闭，不给出可能过期的放行
			return &CompleteDecision{Blocked: true, Reason: ReasonOperationNotFound}, nil
		}
		return &CompleteDecision{Blocked: true, Reason: ReasonWipUnavailable},
			sourceErr("operations.GetOperation", err)
	}

	if !domain.CanTransition(op.Status, domain.StatusCompleted) {
		return &CompleteDecision{Blocked: true, Reason: ReasonNotInProgress}, nil
	}

	jobID, err := w.engine.opsRepo.JobIDForPart(ctx, tenantID, op.PartID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &CompleteDecision{Blocked: true, Reason: ReasonOperationNotFound}, nil
		}
		return &CompleteDecision{Blocked: true, Reason: ReasonWipUnavailable},
			sourceErr("operations.JobIDForPart", err)
	}

	routing, err := w.engine.routing.JobRouting(ctx, tenantID, jobID)
	if err != nil {
		return &CompleteDecision{Blocked: true, Reason: ReasonWipUnavailable}, err
	}

	next := NextCell(routing, op.CellID)
	if next == nil {
		// 路径最后一站：完成永远放行
		return &CompleteDecision{Blocked: false}, nil
	}

	metrics, err := w.WipMetrics(ctx, tenantID, next.CellID)
	if err != nil {
		return &CompleteDecision{
			Blocked:      true,
			Reason:       ReasonWipUnavailable,
			NextCellID:   next.CellID,
			NextCellName: next.CellName,
		}, err
	}

	decision := &CompleteDecision{
		NextCellID:   next.CellID,
		NextCellName: next.CellName,
		CurrentWip:   metrics.CurrentWip,
		WipLimit:     metrics.WipLimit,
	}

	// 无上限：直接放行
	if metrics.WipLimit == nil {
		return decision, nil
	}

	if metrics.EnforceLimit && metrics.CurrentWip >= *metrics.WipLimit {
		decision.Blocked = true
		decision.Reason = ReasonNextCellAtCapacity
		return decision, nil
	}

	if metrics.ShowWarning {
		decision.Warning = WarningApproachingLimit
	}
	return decision, nil
}
