package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull 订阅者发送队列已满，订阅者随即被关闭
	ErrQueueFull = errors.New("subscriber queue full")
	// ErrSubscriberClosed 订阅者已关闭
	ErrSubscriberClosed = errors.New("subscriber closed")
)

// Subscriber 一个推送订阅者
// send 队列有界，满了就断开（disconnect-on-full），慢消费者不会无限占用内存
type Subscriber struct {
	ID         uuid.UUID
	RemoteAddr string // 仅用于诊断

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSubscriber 创建订阅者
func NewSubscriber(remoteAddr string, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Subscriber{
		ID:         uuid.New(),
		RemoteAddr: remoteAddr,
		send:       make(chan []byte, queueSize),
		done:       make(chan struct{}),
	}
}

// Enqueue 非阻塞投递
func (s *Subscriber) Enqueue(msg []byte) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}

	select {
	case s.send <- msg:
		return nil
	default:
		s.Close()
		return ErrQueueFull
	}
}

// Messages 待发送的消息
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Done 订阅者关闭后可读
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close 关闭订阅者，可重复调用
// send 永不关闭，避免与并发的 Enqueue 竞争
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Closed 是否已关闭
func (s *Subscriber) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
