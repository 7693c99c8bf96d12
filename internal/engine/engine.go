package engine

import (
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"

	"go.uber.org/zap"
)

// Engine 容量与流控引擎
// 四个组件都是无状态查询：每次调用对共享数据做一次全量读取，不做增量修补。
type Engine struct {
	cellsRepo    repository.CellsRepository
	calendarRepo repository.CalendarRepository
	allocRepo    repository.AllocationsRepository
	opsRepo      repository.OperationsRepository
	partsRepo    repository.PartsRepository
	logger       *zap.Logger

	// 组件
	calendar *CalendarResolver
	capacity *CapacityAggregator
	routing  *RoutingSequencer
	wip      *WipFlowController
}

// New 创建引擎
func New(
	cellsRepo repository.CellsRepository,
	calendarRepo repository.CalendarRepository,
	allocRepo repository.AllocationsRepository,
	opsRepo repository.OperationsRepository,
	partsRepo repository.PartsRepository,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		cellsRepo:    cellsRepo,
		calendarRepo: calendarRepo,
		allocRepo:    allocRepo,
		opsRepo:      opsRepo,
		partsRepo:    partsRepo,
		logger:       logger,
	}

	e.calendar = NewCalendarResolver(e)
	e.capacity = NewCapacityAggregator(e)
	e.routing = NewRoutingSequencer(e)
	e.wip = NewWipFlowController(e)

	return e
}

func (e *Engine) Calendar() *CalendarResolver   { return e.calendar }
func (e *Engine) Capacity() *CapacityAggregator { return e.capacity }
func (e *Engine) Routing() *RoutingSequencer    { return e.routing }
func (e *Engine) Wip() *WipFlowController       { return e.wip }
