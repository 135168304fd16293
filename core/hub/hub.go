package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"DeckCast/logger"
	"DeckCast/metrics"
	"DeckCast/model"

	"github.com/google/uuid"
)

const (
	DefaultQueueSize    = 64
	DefaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	maxInboundSize      = 4096 // 4KB，入站消息一律丢弃
)

// Hub 订阅者注册表 + 广播
// 广播只在拷贝成员列表时持有读锁，投递在锁外完成；
// 广播进行中注册的订阅者不会收到这一次广播
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber

	queueSize    int
	pingInterval time.Duration
	metrics      *metrics.HubMetrics
}

// Option hub 选项
type Option func(*Hub)

// WithQueueSize 每个订阅者的发送队列长度
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithPingInterval 服务端 ping 间隔，0 表示不发 ping
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) { h.pingInterval = d }
}

// WithMetrics 挂上 prometheus 指标
func WithMetrics(m *metrics.HubMetrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// NewHub 创建 Hub
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subscribers:  make(map[uuid.UUID]*Subscriber),
		queueSize:    DefaultQueueSize,
		pingInterval: DefaultPingInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewSubscriber 按 hub 的队列长度创建订阅者
func (h *Hub) NewSubscriber(remoteAddr string) *Subscriber {
	return NewSubscriber(remoteAddr, h.queueSize)
}

// Register 加入注册表
func (h *Hub) Register(sub *Subscriber) uuid.UUID {
	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.SubscriberAdded()
	logger.Info("subscriber registered",
		logger.Stringer("id", sub.ID),
		logger.String("remote", sub.RemoteAddr),
		logger.Int("subscribers", count))
	return sub.ID
}

// Unregister 移除并关闭订阅者，不存在时什么也不做
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.Close()
	h.metrics.SubscriberRemoved()
	logger.Info("subscriber unregistered",
		logger.Stringer("id", id),
		logger.String("remote", sub.RemoteAddr),
		logger.Int("subscribers", count))
}

// Count 当前订阅者数量
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast 序列化一次后投递给所有订阅者，返回成功入队的数量
// 单个订阅者失败只记日志，不影响其他订阅者，也不重试
func (h *Hub) Broadcast(msg model.PushMessage) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshal %s message: %w", msg.Topic(), err)
	}
	return h.BroadcastRaw(msg.Topic(), data), nil
}

// BroadcastRaw 投递已序列化的消息
func (h *Hub) BroadcastRaw(topic string, data []byte) int {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if err := sub.Enqueue(data); err != nil {
			reason := "closed"
			if errors.Is(err, ErrQueueFull) {
				reason = "queue_full"
			}
			h.metrics.DeliveryFailed(reason)
			logger.Warn("subscriber delivery failed",
				logger.Stringer("id", sub.ID),
				logger.String("remote", sub.RemoteAddr),
				logger.String("topic", topic),
				logger.ErrorField(err))
			continue
		}
		delivered++
	}

	h.metrics.Broadcast(topic, delivered)
	logger.Debug("broadcast",
		logger.String("topic", topic),
		logger.Int("delivered", delivered),
		logger.Int("subscribers", len(subs)))
	return delivered
}

// Publish implements mix.Publisher.
func (h *Hub) Publish(_ context.Context, msg model.PushMessage) {
	if _, err := h.Broadcast(msg); err != nil {
		logger.Error("broadcast failed", logger.String("topic", msg.Topic()), logger.ErrorField(err))
	}
}

// Close 关闭所有订阅者，连接由各自的 write pump 收尾
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[uuid.UUID]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
		h.metrics.SubscriberRemoved()
	}
}
