package engine

import (
	"context"
	"database/sql"
	"testing"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_DefaultMask(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	// 2025-06-04 周三：默认掩码 31 下为工作日
	info, err := f.engine.Calendar().Resolve(ctx, "tenant-1", "2025-06-04")
	require.NoError(t, err)
	assert.Equal(t, domain.DayTypeWorking, info.Type)
	assert.Equal(t, 1.0, info.Multiplier)

	// 2025-06-07 周六：非工作日
	info, err = f.engine.Calendar().Resolve(ctx, "tenant-1", "2025-06-07")
	require.NoError(t, err)
	assert.Equal(t, domain.DayTypeWeekend, info.Type)
	assert.Equal(t, 0.0, info.Multiplier)
}

func TestResolve_OverrideWinsOverMask(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	f.cal.AddDay(&domain.CalendarDay{
		TenantID:           "tenant-1",
		Date:               mustDate("2025-05-01"), // 周四
		DayType:            domain.DayTypeHoliday,
		Name:               sql.NullString{String: "May Day", Valid: true},
		CapacityMultiplier: 0,
	})

	info, err := f.engine.Calendar().Resolve(ctx, "tenant-1", "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, domain.DayTypeHoliday, info.Type)
	assert.Equal(t, "May Day", info.Label)
	assert.Equal(t, 0.0, info.Multiplier)
}

func TestResolve_HalfDayOverrideOnWeekend(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	// 周六覆盖为半天加班：乘数原样返回，不被掩码归零
	f.cal.AddDay(&domain.CalendarDay{
		TenantID:           "tenant-1",
		Date:               mustDate("2025-06-07"),
		DayType:            domain.DayTypeHalfDay,
		CapacityMultiplier: 0.5,
	})

	info, err := f.engine.Calendar().Resolve(ctx, "tenant-1", "2025-06-07")
	require.NoError(t, err)
	assert.Equal(t, domain.DayTypeHalfDay, info.Type)
	assert.Equal(t, 0.5, info.Multiplier)
}

func TestResolve_CustomMaskIncludesSaturday(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()
	f.cal.SetMask("tenant-1", 31+32) // Mon-Sat

	info, err := f.engine.Calendar().Resolve(ctx, "tenant-1", "2025-06-07")
	require.NoError(t, err)
	assert.Equal(t, domain.DayTypeWorking, info.Type)
	assert.Equal(t, 1.0, info.Multiplier)
}

func TestResolve_InvalidDate(t *testing.T) {
	f := newTestFixture()

	_, err := f.engine.Calendar().Resolve(context.Background(), "tenant-1", "06/04/2025")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestResolve_Deterministic(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	a, err := f.engine.Calendar().Resolve(ctx, "tenant-1", "2025-06-04")
	require.NoError(t, err)
	b, err := f.engine.Calendar().Resolve(ctx, "tenant-1", "2025-06-04")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWorkingDaysMask_SundayBit(t *testing.T) {
	mask := domain.WorkingDaysMask(64) // 仅周日
	assert.True(t, mask.IsWorkingWeekday(mustDate("2025-06-08").Weekday()))
	assert.False(t, mask.IsWorkingWeekday(mustDate("2025-06-09").Weekday()))
}
