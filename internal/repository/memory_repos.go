package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
)

// 内存实现：DB 未就绪时的开发回退，也是引擎单测的数据源。

// MemoryCellsRepo 内存单元仓库
type MemoryCellsRepo struct {
	mu    sync.RWMutex
	cells []*domain.Cell
}

func NewMemoryCellsRepo() *MemoryCellsRepo {
	return &MemoryCellsRepo{}
}

func (m *MemoryCellsRepo) AddCell(c *domain.Cell) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells = append(m.cells, c)
}

func (m *MemoryCellsRepo) GetCell(ctx context.Context, tenantID, cellID string) (*domain.Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cells {
		if c.TenantID == tenantID && c.CellID == cellID {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryCellsRepo) ListCells(ctx context.Context, tenantID string) ([]*domain.Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.Cell{}
	for _, c := range m.cells {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// MemoryPartsRepo 内存零件仓库
type MemoryPartsRepo struct {
	mu    sync.RWMutex
	parts []*domain.Part
}

func NewMemoryPartsRepo() *MemoryPartsRepo {
	return &MemoryPartsRepo{}
}

func (m *MemoryPartsRepo) AddPart(p *domain.Part) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts = append(m.parts, p)
}

func (m *MemoryPartsRepo) CountAtCell(ctx context.Context, tenantID, cellID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.parts {
		if p.TenantID == tenantID && p.CurrentCellID.Valid && p.CurrentCellID.String == cellID {
			n++
		}
	}
	return n, nil
}

// MemoryCalendarRepo 内存日历仓库
type MemoryCalendarRepo struct {
	mu    sync.RWMutex
	days  map[string]*domain.CalendarDay // key: tenantID|YYYY-MM-DD
	masks map[string]domain.WorkingDaysMask
}

func NewMemoryCalendarRepo() *MemoryCalendarRepo {
	return &MemoryCalendarRepo{
		days:  map[string]*domain.CalendarDay{},
		masks: map[string]domain.WorkingDaysMask{},
	}
}

func calKey(tenantID string, date time.Time) string {
	return tenantID + "|" + date.Format("2006-01-02")
}

func (m *MemoryCalendarRepo) AddDay(d *domain.CalendarDay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[calKey(d.TenantID, d.Date)] = d
}

func (m *MemoryCalendarRepo) SetMask(tenantID string, mask domain.WorkingDaysMask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masks[tenantID] = mask
}

func (m *MemoryCalendarRepo) GetDay(ctx context.Context, tenantID string, date time.Time) (*domain.CalendarDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.days[calKey(tenantID, date)]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryCalendarRepo) ListRange(ctx context.Context, tenantID string, from, to time.Time) ([]*domain.CalendarDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.CalendarDay{}
	for _, d := range m.days {
		if d.TenantID != tenantID {
			continue
		}
		if d.Date.Before(from) || d.Date.After(to) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryCalendarRepo) WorkingDaysMask(ctx context.Context, tenantID string) (domain.WorkingDaysMask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mask, ok := m.masks[tenantID]; ok {
		return mask, nil
	}
	return domain.DefaultWorkingDaysMask, nil
}

// MemoryAllocationsRepo 内存分配仓库
type MemoryAllocationsRepo struct {
	mu    sync.RWMutex
	items []*domain.DayAllocation
}

func NewMemoryAllocationsRepo() *MemoryAllocationsRepo {
	return &MemoryAllocationsRepo{}
}

func (m *MemoryAllocationsRepo) ListForCellRange(ctx context.Context, tenantID, cellID string, from, to time.Time) ([]*domain.DayAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.DayAllocation{}
	for _, a := range m.items {
		if a.TenantID != tenantID || a.CellID != cellID {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryAllocationsRepo) Upsert(ctx context.Context, a *domain.DayAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, old := range m.items {
		if old.TenantID == a.TenantID && old.OperationID == a.OperationID &&
			old.CellID == a.CellID && old.Date.Equal(a.Date) {
			m.items[i] = a
			return nil
		}
	}
	m.items = append(m.items, a)
	return nil
}

// MemoryOperationsRepo 内存工序仓库
// AddPart 登记零件与作业的归属，ListByJob 据此汇总。
type MemoryOperationsRepo struct {
	mu      sync.RWMutex
	ops     []*domain.Operation
	partJob map[string]string // part_id -> job_id
}

func NewMemoryOperationsRepo() *MemoryOperationsRepo {
	return &MemoryOperationsRepo{partJob: map[string]string{}}
}

func (m *MemoryOperationsRepo) AddPart(partID, jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partJob[partID] = jobID
}

func (m *MemoryOperationsRepo) AddOperation(o *domain.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, o)
}

func (m *MemoryOperationsRepo) SetStatus(operationID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.ops {
		if o.OperationID == operationID {
			o.Status = status
			return
		}
	}
}

func (m *MemoryOperationsRepo) GetOperation(ctx context.Context, tenantID, operationID string) (*domain.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.ops {
		if o.TenantID == tenantID && o.OperationID == operationID {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryOperationsRepo) ListByJob(ctx context.Context, tenantID, jobID string) ([]*domain.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*domain.Operation{}
	for _, o := range m.ops {
		if o.TenantID == tenantID && m.partJob[o.PartID] == jobID {
			out = append(out, o)
		}
	}
	// 稳定排序：同 sequence 保持插入（创建）顺序
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *MemoryOperationsRepo) JobIDForPart(ctx context.Context, tenantID, partID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if jobID, ok := m.partJob[partID]; ok {
		return jobID, nil
	}
	return "", ErrNotFound
}

func (m *MemoryOperationsRepo) ListPlannedForCellDate(ctx context.Context, tenantID, cellID string, date time.Time) ([]*domain.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	day := date.Format("2006-01-02")
	out := []*domain.Operation{}
	for _, o := range m.ops {
		if o.TenantID != tenantID || o.CellID != cellID || !o.PlannedStart.Valid {
			continue
		}
		start := o.PlannedStart.Time.Format("2006-01-02")
		end := start
		if o.PlannedEnd.Valid {
			end = o.PlannedEnd.Time.Format("2006-01-02")
		}
		if start <= day && day <= end {
			out = append(out, o)
		}
	}
	return out, nil
}
