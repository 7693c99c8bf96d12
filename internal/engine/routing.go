package engine

import (
	"context"
	"sort"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
)

// RoutingStep 作业路径中的一个单元
// 作业可能重访同一单元：首次出现决定位置，后续出现并入计数。
type RoutingStep struct {
	CellID              string `json:"cell_id"`
	CellName            string `json:"cell_name"`
	OperationCount      int    `json:"operation_count"`
	CompletedOperations int    `json:"completed_operations"`
}

// FullyPassed 该单元的全部工序均已完成
func (s *RoutingStep) FullyPassed() bool {
	return s.OperationCount > 0 && s.CompletedOperations == s.OperationCount
}

// RoutingSequencer 作业路径排序器
type RoutingSequencer struct {
	engine *Engine
}

// NewRoutingSequencer 创建路径排序器
func NewRoutingSequencer(engine *Engine) *RoutingSequencer {
	return &RoutingSequencer{engine: engine}
}

// JobRouting 推导作业经过的单元序列
// 作业不存在或尚无工序时返回空序列（中性结果，不报错）。
func (r *RoutingSequencer) JobRouting(ctx context.Context, tenantID, jobID string) ([]*RoutingStep, error) {
	ops, err := r.engine.opsRepo.ListByJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, sourceErr("operations.ListByJob", err)
	}
	return buildRouting(ops), nil
}

// buildRouting 纯函数核心
// sequence 升序（同序按输入顺序稳定，路径对固定输入绝不歧义），
// 按 cell_id 首次出现去重。
func buildRouting(ops []*domain.Operation) []*RoutingStep {
	sorted := make([]*domain.Operation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	steps := []*RoutingStep{}
	index := map[string]int{}
	for _, op := range sorted {
		i, seen := index[op.CellID]
		if !seen {
			i = len(steps)
			index[op.CellID] = i
			steps = append(steps, &RoutingStep{
				CellID:   op.CellID,
				CellName: op.CellName,
			})
		}
		steps[i].OperationCount++
		if op.IsCompleted() {
			steps[i].CompletedOperations++
		}
	}
	return steps
}

// CurrentCellIndex 当前单元在路径中的位置；未找到返回 -1
func CurrentCellIndex(routing []*RoutingStep, cellID string) int {
	for i, s := range routing {
		if s.CellID == cellID {
			return i
		}
	}
	return -1
}

// NextCell 路径中当前单元的下一站；最后一站或未找到返回 nil
func NextCell(routing []*RoutingStep, currentCellID string) *RoutingStep {
	i := CurrentCellIndex(routing, currentCellID)
	if i < 0 || i+1 >= len(routing) {
		return nil
	}
	return routing[i+1]
}
