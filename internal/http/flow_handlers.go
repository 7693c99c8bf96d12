package httpapi

import (
	"errors"
	"net/http"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/engine"
	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/service"

	"go.uber.org/zap"
)

// FlowHandler 容量与流控看板 Handler
type FlowHandler struct {
	flowService service.FlowService
	logger      *zap.Logger
}

// NewFlowHandler 创建看板 Handler
func NewFlowHandler(flowService service.FlowService, logger *zap.Logger) *FlowHandler {
	return &FlowHandler{
		flowService: flowService,
		logger:      logger,
	}
}

// ResolveDay GET /flow/api/v1/calendar/resolve?date=YYYY-MM-DD
func (h *FlowHandler) ResolveDay(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusBadRequest, Fail("missing date"))
		return
	}

	info, err := h.flowService.ResolveDay(r.Context(), tenantID, date)
	if err != nil {
		h.writeError(w, "resolve day", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(info))
}

// ListCells GET /flow/api/v1/cells
func (h *FlowHandler) ListCells(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	cells, err := h.flowService.ListCells(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, "list cells", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cells))
}

// CellLoad GET /flow/api/v1/cells/{id}/load?date=YYYY-MM-DD&days=N
func (h *FlowHandler) CellLoad(w http.ResponseWriter, r *http.Request, cellID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusBadRequest, Fail("missing date"))
		return
	}
	days := parseInt(r.URL.Query().Get("days"), 1)

	loads, err := h.flowService.CellLoadRange(r.Context(), tenantID, cellID, date, days)
	if err != nil {
		h.writeError(w, "cell load", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(loads))
}

// CellWip GET /flow/api/v1/cells/{id}/wip
func (h *FlowHandler) CellWip(w http.ResponseWriter, r *http.Request, cellID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	metrics, err := h.flowService.CellWip(r.Context(), tenantID, cellID)
	if err != nil {
		h.writeError(w, "cell wip", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(metrics))
}

// CapacityMatrix GET /flow/api/v1/capacity-matrix?from=YYYY-MM-DD&days=N
func (h *FlowHandler) CapacityMatrix(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	from := r.URL.Query().Get("from")
	if from == "" {
		writeJSON(w, http.StatusBadRequest, Fail("missing from"))
		return
	}
	days := parseInt(r.URL.Query().Get("days"), 7)

	matrix, err := h.flowService.CapacityMatrix(r.Context(), tenantID, from, days)
	if err != nil {
		h.writeError(w, "capacity matrix", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(matrix))
}

// ExportCapacityMatrix GET /flow/api/v1/capacity-matrix/export?from=YYYY-MM-DD&days=N
func (h *FlowHandler) ExportCapacityMatrix(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	from := r.URL.Query().Get("from")
	if from == "" {
		writeJSON(w, http.StatusBadRequest, Fail("missing from"))
		return
	}
	days := parseInt(r.URL.Query().Get("days"), 7)

	data, err := h.flowService.ExportCapacityMatrix(r.Context(), tenantID, from, days)
	if err != nil {
		h.writeError(w, "export capacity matrix", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="capacity-matrix-`+from+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// JobRouting GET /flow/api/v1/jobs/{id}/routing
func (h *FlowHandler) JobRouting(w http.ResponseWriter, r *http.Request, jobID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	routing, err := h.flowService.JobRouting(r.Context(), tenantID, jobID)
	if err != nil {
		h.writeError(w, "job routing", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(routing))
}

// CanComplete GET /flow/api/v1/operations/{id}/can-complete
// 数据源故障时也返回 200 + 拦截决策：调用方拿到的永远是可执行的结论。
func (h *FlowHandler) CanComplete(w http.ResponseWriter, r *http.Request, operationID string) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	decision, err := h.flowService.CanComplete(r.Context(), tenantID, operationID)
	if err != nil {
		h.logger.Error("can-complete degraded to fail-safe block",
			zap.String("operation_id", operationID),
			zap.Error(err),
		)
	}
	if decision == nil {
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(decision))
}

// Health GET /healthz
func (h *FlowHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *FlowHandler) writeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, engine.ErrInvalidDate) {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
}
