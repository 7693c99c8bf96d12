package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

const flowAPIBase = "/flow/api/v1"

// RegisterFlowRoutes 注册看板路由
// hub 可为 nil（WebSocket 推送未启用时 /ws 返回 404）。
func (r *Router) RegisterFlowRoutes(f *FlowHandler, hub *Hub) {
	r.Handle(flowAPIBase+"/calendar/resolve", getOnly(f.ResolveDay))
	r.Handle(flowAPIBase+"/cells", getOnly(f.ListCells))

	// cells/{id}/load | cells/{id}/wip
	r.Handle(flowAPIBase+"/cells/", getOnly(func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, flowAPIBase+"/cells/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch parts[1] {
		case "load":
			f.CellLoad(w, req, parts[0])
		case "wip":
			f.CellWip(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	r.Handle(flowAPIBase+"/capacity-matrix", getOnly(f.CapacityMatrix))
	r.Handle(flowAPIBase+"/capacity-matrix/export", getOnly(f.ExportCapacityMatrix))

	// jobs/{id}/routing
	r.Handle(flowAPIBase+"/jobs/", getOnly(func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, flowAPIBase+"/jobs/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "routing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.JobRouting(w, req, parts[0])
	}))

	// operations/{id}/can-complete
	r.Handle(flowAPIBase+"/operations/", getOnly(func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, flowAPIBase+"/operations/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "can-complete" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.CanComplete(w, req, parts[0])
	}))

	if hub != nil {
		r.Handle(flowAPIBase+"/ws", hub.HandleWS)
	}

	r.Handle(flowAPIBase+"/health", getOnly(f.Health))
	r.Handle("/healthz", getOnly(f.Health))
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}
