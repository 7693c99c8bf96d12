package engine

import (
	"context"
	"database/sql"
	"testing"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addAllocation(f *testFixture, opID, cellID, date string, hours float64) {
	_ = f.allocs.Upsert(context.Background(), &domain.DayAllocation{
		AllocationID:   "alloc-" + opID + "-" + date,
		TenantID:       "tenant-1",
		OperationID:    opID,
		CellID:         cellID,
		Date:           mustDate(date),
		HoursAllocated: hours,
	})
}

func TestCellLoad_FromAllocations(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, 8))
	addAllocation(f, "op-1", "cell-weld", "2025-06-04", 2)
	addAllocation(f, "op-2", "cell-weld", "2025-06-04", 2)
	addAllocation(f, "op-3", "cell-weld", "2025-06-04", 2)

	load, err := f.engine.Capacity().CellLoad(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-04"))
	require.NoError(t, err)
	assert.Equal(t, "Welding", load.CellName)
	assert.Equal(t, 8.0, load.HoursCapacity)
	assert.Equal(t, 6.0, load.HoursCommitted)
	assert.Equal(t, 75.0, load.Percent)
	assert.Equal(t, BandMedium, load.Band)
	assert.Equal(t, SourceAllocations, load.Source)
}

func TestCellLoad_OverloadNotClamped(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, 8))
	addAllocation(f, "op-1", "cell-weld", "2025-06-04", 10)

	load, err := f.engine.Capacity().CellLoad(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 125.0, load.Percent)
	assert.Equal(t, BandOver, load.Band)
}

func TestCellLoad_FallbackToPlannedOperations(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, 8))

	// 无任何分配记录：按计划区间推断，90+150 分钟 = 4 小时
	op1 := testOperation("tenant-1", "op-1", "part-1", "cell-weld", "Welding", 1, domain.StatusNotStarted)
	op1.EstimatedTime = 90
	op1.PlannedStart = sql.NullTime{Time: mustDate("2025-06-04"), Valid: true}
	op2 := testOperation("tenant-1", "op-2", "part-1", "cell-weld", "Welding", 2, domain.StatusNotStarted)
	op2.EstimatedTime = 150
	op2.PlannedStart = sql.NullTime{Time: mustDate("2025-06-03"), Valid: true}
	op2.PlannedEnd = sql.NullTime{Time: mustDate("2025-06-05"), Valid: true}
	f.ops.AddOperation(op1)
	f.ops.AddOperation(op2)

	load, err := f.engine.Capacity().CellLoad(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, load.HoursCommitted)
	assert.Equal(t, 50.0, load.Percent)
	assert.Equal(t, SourceOperations, load.Source)
}

func TestCapacityForRange_AllocationsSuppressFallback(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, 8))

	// 区间内存在分配记录：没有记录的那天是真实空闲，不走计划推断
	addAllocation(f, "op-1", "cell-weld", "2025-06-03", 4)
	op := testOperation("tenant-1", "op-2", "part-1", "cell-weld", "Welding", 1, domain.StatusNotStarted)
	op.EstimatedTime = 120
	op.PlannedStart = sql.NullTime{Time: mustDate("2025-06-04"), Valid: true}
	f.ops.AddOperation(op)

	loads, err := f.engine.Capacity().CapacityForRange(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-03"), 2)
	require.NoError(t, err)
	require.Len(t, loads, 2)

	assert.Equal(t, SourceAllocations, loads[0].Source)
	assert.Equal(t, 4.0, loads[0].HoursCommitted)

	assert.Equal(t, SourceNone, loads[1].Source)
	assert.Equal(t, 0.0, loads[1].HoursCommitted)
	assert.Equal(t, BandEmpty, loads[1].Band)
}

func TestCapacityForRange_NonWorkingDay(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, 8))

	// 2025-06-07 周六
	loads, err := f.engine.Capacity().CapacityForRange(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-07"), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, loads[0].HoursCapacity)
	assert.Equal(t, BandNonWorking, loads[0].Band)
	assert.Equal(t, 0.0, loads[0].Percent)
}

func TestCapacityForRange_StrayAllocationOnWeekend(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, 8))
	addAllocation(f, "op-1", "cell-weld", "2025-06-07", 3)

	// 非工作日上的遗留分配：工时照常上报，分级仍为 non-working
	loads, err := f.engine.Capacity().CapacityForRange(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-07"), 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, loads[0].HoursCommitted)
	assert.Equal(t, 0.0, loads[0].Percent) // capacity 0
	assert.Equal(t, BandNonWorking, loads[0].Band)
	assert.Equal(t, SourceAllocations, loads[0].Source)
}

func TestCapacityForRange_HalfDayMultiplier(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, 8))
	f.cal.AddDay(&domain.CalendarDay{
		TenantID:           "tenant-1",
		Date:               mustDate("2025-06-04"),
		DayType:            domain.DayTypeHalfDay,
		CapacityMultiplier: 0.5,
	})
	addAllocation(f, "op-1", "cell-weld", "2025-06-04", 4)

	load, err := f.engine.Capacity().CellLoad(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, load.HoursCapacity)
	assert.Equal(t, 100.0, load.Percent)
	assert.Equal(t, BandHigh, load.Band)
}

func TestCapacityForRange_UnknownCell(t *testing.T) {
	f := newTestFixture()

	loads, err := f.engine.Capacity().CapacityForRange(context.Background(), "tenant-1", "cell-ghost", mustDate("2025-06-04"), 3)
	require.NoError(t, err)
	require.Len(t, loads, 3)
	for _, l := range loads {
		assert.Equal(t, 0.0, l.HoursCapacity)
		assert.Equal(t, 0.0, l.HoursCommitted)
		assert.Equal(t, SourceNone, l.Source)
	}
}

func TestCapacityForRange_NegativeCapacityTreatedAsZero(t *testing.T) {
	f := newTestFixture()
	f.cells.AddCell(testCell("tenant-1", "cell-weld", "Welding", 1, -4))
	addAllocation(f, "op-1", "cell-weld", "2025-06-04", 2)

	load, err := f.engine.Capacity().CellLoad(context.Background(), "tenant-1", "cell-weld", mustDate("2025-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, load.HoursCapacity)
	assert.Equal(t, 0.0, load.Percent)
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandEmpty, bandFor(0))
	assert.Equal(t, BandLow, bandFor(50))
	assert.Equal(t, BandMedium, bandFor(80))
	assert.Equal(t, BandHigh, bandFor(100))
	assert.Equal(t, BandOver, bandFor(100.01))
}
