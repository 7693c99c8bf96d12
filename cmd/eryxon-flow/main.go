package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/config"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/consumer"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/database"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/engine"
	httpapi "github.com/SheetMetalConnect/eryxon-flow-sub001/internal/http"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/logger"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/redisx"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/repository"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/service"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "eryxon-flow")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redisx.NewRedisClient(cfg)
	var cache *consumer.FlowCache
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		log.Warn("Redis unavailable, running without cache and push", zap.Error(err))
		redisClient = nil
	} else {
		cache = consumer.NewFlowCache(cfg, store.NewRedisKV(redisClient), log)
	}

	// 仓库：DB 可用走 Postgres，否则内存 repo + 演示数据兜底
	var db *sql.DB
	var cellsRepo repository.CellsRepository
	var calendarRepo repository.CalendarRepository
	var allocRepo repository.AllocationsRepository
	var opsRepo repository.OperationsRepository
	var partsRepo repository.PartsRepository

	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for eryxon-flow")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		cellsRepo = repository.NewPostgresCellsRepository(db)
		calendarRepo = repository.NewPostgresCalendarRepository(db)
		allocRepo = repository.NewPostgresAllocationsRepository(db)
		opsRepo = repository.NewPostgresOperationsRepository(db)
		partsRepo = repository.NewPostgresPartsRepository(db)
	} else {
		cells, parts, cal, allocs, ops := seedMemoryRepos()
		cellsRepo, partsRepo, calendarRepo, allocRepo, opsRepo = cells, parts, cal, allocs, ops
		log.Info("running on seeded memory repos")
	}

	eng := engine.New(cellsRepo, calendarRepo, allocRepo, opsRepo, partsRepo, log)
	flowService := service.NewFlowService(cfg, eng, cellsRepo, cache, log)

	hub := httpapi.NewHub(log)
	go hub.Run()

	router := httpapi.NewRouter(log)
	router.RegisterFlowRoutes(httpapi.NewFlowHandler(flowService, log), hub)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if redisClient != nil {
		changeConsumer := consumer.NewChangeConsumer(cfg, redisClient, cache, hub, log)
		go func() {
			if err := changeConsumer.Start(ctx); err != nil {
				log.Error("change consumer exited", zap.Error(err))
			}
		}()
	}

	if cfg.Scheduler.Enabled {
		tenantID := os.Getenv("FLOW_TENANT_ID")
		if tenantID == "" {
			log.Warn("scheduler sync enabled but FLOW_TENANT_ID not set, sync disabled")
		} else {
			client := service.NewSchedulerClient(&cfg.Scheduler, log)
			sync := service.NewSchedulerSync(cfg, client, allocRepo, redisClient, tenantID, 14, log)
			go func() {
				if err := sync.Start(ctx, 5*time.Minute); err != nil {
					log.Error("scheduler sync exited", zap.Error(err))
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisx.Close(redisClient)
	if db != nil {
		_ = db.Close()
	}
}

// seedMemoryRepos 演示数据：三站产线 + 一个在制作业
// DB 未就绪时让看板页面可渲染、完成门禁可演示。
func seedMemoryRepos() (*repository.MemoryCellsRepo, *repository.MemoryPartsRepo, *repository.MemoryCalendarRepo, *repository.MemoryAllocationsRepo, *repository.MemoryOperationsRepo) {
	const tenantID = "00000000-0000-0000-0000-000000000001"

	cells := repository.NewMemoryCellsRepo()
	cells.AddCell(repoCell(tenantID, "cell-cut", "Cutting", 1, "#4A90D9", 8, 0, false))
	cells.AddCell(repoCell(tenantID, "cell-weld", "Welding", 2, "#D9784A", 8, 3, true))
	cells.AddCell(repoCell(tenantID, "cell-paint", "Painting", 3, "#6BAF6B", 6, 0, false))

	cal := repository.NewMemoryCalendarRepo()
	cal.AddDay(&domain.CalendarDay{
		TenantID:           tenantID,
		Date:               mustDate("2026-05-01"),
		DayType:            domain.DayTypeHoliday,
		Name:               sql.NullString{String: "May Day", Valid: true},
		CapacityMultiplier: 0,
	})

	allocs := repository.NewMemoryAllocationsRepo()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i, opID := range []string{"op-11", "op-12", "op-13"} {
		_ = allocs.Upsert(context.Background(), &domain.DayAllocation{
			AllocationID:   "alloc-" + opID,
			TenantID:       tenantID,
			OperationID:    opID,
			CellID:         "cell-weld",
			Date:           today.AddDate(0, 0, i%2),
			HoursAllocated: 2,
		})
	}

	ops := repository.NewMemoryOperationsRepo()
	ops.AddPart("part-1", "job-1")
	ops.AddOperation(&domain.Operation{
		OperationID: "op-11", TenantID: tenantID, PartID: "part-1",
		CellID: "cell-cut", CellName: "Cutting", Sequence: 10,
		Status: domain.StatusInProgress, EstimatedTime: 120,
	})
	ops.AddOperation(&domain.Operation{
		OperationID: "op-12", TenantID: tenantID, PartID: "part-1",
		CellID: "cell-weld", CellName: "Welding", Sequence: 20,
		Status: domain.StatusNotStarted, EstimatedTime: 180,
	})
	ops.AddOperation(&domain.Operation{
		OperationID: "op-13", TenantID: tenantID, PartID: "part-1",
		CellID: "cell-paint", CellName: "Painting", Sequence: 30,
		Status: domain.StatusNotStarted, EstimatedTime: 60,
	})

	parts := repository.NewMemoryPartsRepo()
	parts.AddPart(&domain.Part{
		PartID: "part-1", TenantID: tenantID, JobID: "job-1",
		PartNumber: "PN-1001", Quantity: 1,
		CurrentCellID: sql.NullString{String: "cell-cut", Valid: true},
	})
	for _, id := range []string{"part-2", "part-3", "part-4"} {
		parts.AddPart(&domain.Part{
			PartID: id, TenantID: tenantID, JobID: "job-2",
			PartNumber: "PN-" + id, Quantity: 1,
			CurrentCellID: sql.NullString{String: "cell-weld", Valid: true},
		})
	}

	return cells, parts, cal, allocs, ops
}

func repoCell(tenantID, cellID, name string, seq int, color string, hours float64, wipLimit int64, enforce bool) *domain.Cell {
	c := &domain.Cell{
		CellID:              cellID,
		TenantID:            tenantID,
		CellName:            name,
		Sequence:            seq,
		Color:               color,
		CapacityHoursPerDay: hours,
		EnforceLimit:        enforce,
	}
	if wipLimit > 0 {
		c.WipLimit = sql.NullInt64{Int64: wipLimit, Valid: true}
	}
	return c
}

func mustDate(s string) time.Time {
	d, err := engine.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
