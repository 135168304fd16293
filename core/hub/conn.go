package hub

import (
	"time"

	"DeckCast/logger"

	"github.com/gorilla/websocket"
)

// Serve 接管一个已完成握手的 WebSocket 连接，阻塞到连接关闭
// 状态：握手完成并注册后为 Open；读写出错或显式关闭后注销
func (h *Hub) Serve(conn *websocket.Conn, remoteAddr string) {
	sub := h.NewSubscriber(remoteAddr)
	h.Register(sub)
	defer func() {
		h.Unregister(sub.ID)
		conn.Close()
	}()

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

// readPump 订阅者发来的消息全部丢弃，只用来发现断开
func (h *Hub) readPump(conn *websocket.Conn, sub *Subscriber) {
	conn.SetReadLimit(maxInboundSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.Stringer("id", sub.ID),
					logger.String("remote", sub.RemoteAddr),
					logger.ErrorField(err))
			}
			return
		}
	}
}

// writePump 每条消息一个文本帧
func (h *Hub) writePump(conn *websocket.Conn, sub *Subscriber) {
	var ping <-chan time.Time
	if h.pingInterval > 0 {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer func() {
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case msg := <-sub.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("websocket write error",
					logger.Stringer("id", sub.ID),
					logger.ErrorField(err))
				return
			}

		case <-ping:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sub.Done():
			// 队列满或 hub 关闭
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
