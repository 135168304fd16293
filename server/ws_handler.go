package server

import (
	"net/http"

	"DeckCast/core/hub"
	"DeckCast/logger"

	"github.com/gorilla/websocket"
)

// PushHandler 推送端口上的 WebSocket 握手
type PushHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewPushHandler 创建 PushHandler 实例
func NewPushHandler(h *hub.Hub) *PushHandler {
	return &PushHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP 握手后阻塞到连接关闭
func (h *PushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed",
			logger.String("remote", r.RemoteAddr),
			logger.ErrorField(err))
		return
	}

	logger.Info("subscriber connected", logger.String("remote", r.RemoteAddr))
	h.hub.Serve(conn, r.RemoteAddr)
	logger.Info("subscriber disconnected", logger.String("remote", r.RemoteAddr))
}
