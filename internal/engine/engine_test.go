package engine

import (
	"database/sql"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"

	"go.uber.org/zap"
)

// 测试夹具：内存仓库 + 静默日志
type testFixture struct {
	engine *Engine
	cells  *repository.MemoryCellsRepo
	parts  *repository.MemoryPartsRepo
	cal    *repository.MemoryCalendarRepo
	allocs *repository.MemoryAllocationsRepo
	ops    *repository.MemoryOperationsRepo
}

func newTestFixture() *testFixture {
	f := &testFixture{
		cells:  repository.NewMemoryCellsRepo(),
		parts:  repository.NewMemoryPartsRepo(),
		cal:    repository.NewMemoryCalendarRepo(),
		allocs: repository.NewMemoryAllocationsRepo(),
		ops:    repository.NewMemoryOperationsRepo(),
	}
	f.engine = New(f.cells, f.cal, f.allocs, f.ops, f.parts, zap.NewNop())
	return f
}

func mustDate(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func testCell(tenantID, cellID, name string, seq int, hours float64) *domain.Cell {
	return &domain.Cell{
		CellID:              cellID,
		TenantID:            tenantID,
		CellName:            name,
		Sequence:            seq,
		CapacityHoursPerDay: hours,
	}
}

func testOperation(tenantID, opID, partID, cellID, cellName string, seq int, status string) *domain.Operation {
	return &domain.Operation{
		OperationID: opID,
		TenantID:    tenantID,
		PartID:      partID,
		CellID:      cellID,
		CellName:    cellName,
		Sequence:    seq,
		Status:      status,
	}
}
