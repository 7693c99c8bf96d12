package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub 看板 WebSocket 推送中心
// 只做单向广播：变更事件推给所有已连接的看板客户端，客户端不回话。
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.RWMutex
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
		logger:    logger,
	}
}

// Run 广播循环（在独立 goroutine 中运行）
func (h *Hub) Run() {
	for msg := range h.broadcast {
		h.mutex.RLock()
		var dead []*websocket.Conn
		for client := range h.clients {
			if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
				dead = append(dead, client)
			}
		}
		h.mutex.RUnlock()

		for _, client := range dead {
			h.RemoveClient(client)
		}
	}
}

func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
}

func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mutex.Unlock()
}

// BroadcastMessage 非阻塞广播：通道满时丢弃（看板会按 TTL 自行刷新）
func (h *Hub) BroadcastMessage(message []byte) {
	select {
	case h.broadcast <- message:
	default:
	}
}

// BroadcastJSON 序列化后广播（consumer.Broadcaster 实现）
func (h *Hub) BroadcastJSON(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}
	h.BroadcastMessage(msg)
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 看板由网关做来源控制，这里不重复校验
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS 升级连接并挂到 hub 上
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.AddClient(conn)
	h.logger.Debug("websocket client connected", zap.Int("client_count", h.ClientCount()))

	// 读循环只用于感知断开
	go func() {
		defer h.RemoveClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
