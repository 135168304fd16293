package cache

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

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultBacklog 镜像写入队列长度，满了直接丢弃
	DefaultBacklog = 64
	writeTimeout   = 2 * time.Second
)

// ErrNoSnapshot Redis 中还没有快照
var ErrNoSnapshot = errors.New("no snapshot mirrored yet")

// Commander NowPlayingCache 用到的 Redis 命令，*redis.Client 满足
type Commander interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type mirrorJob struct {
	topic string
	data  []byte
}

// NowPlayingCache 把推送给订阅者的每条消息镜像到 Redis
// key: <prefix>:nowplaying / <prefix>:clock，频道: <prefix>:events
// 写入在后台 goroutine 完成，不阻塞接入请求
type NowPlayingCache struct {
	rdb     Commander
	prefix  string
	ttl     time.Duration
	metrics *metrics.MirrorMetrics

	mu     sync.RWMutex
	closed bool
	jobs   chan mirrorJob
	done   chan struct{}
}

// NewNowPlayingCache 创建镜像并启动写入 goroutine
func NewNowPlayingCache(rdb Commander, prefix string, ttl time.Duration, m *metrics.MirrorMetrics) *NowPlayingCache {
	c := &NowPlayingCache{
		rdb:     rdb,
		prefix:  prefix,
		ttl:     ttl,
		metrics: m,
		jobs:    make(chan mirrorJob, DefaultBacklog),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// SnapshotKey 某类消息的快照 key
func (c *NowPlayingCache) SnapshotKey(topic string) string {
	return c.prefix + ":" + topic
}

// EventsChannel pub/sub 频道名
func (c *NowPlayingCache) EventsChannel() string {
	return c.prefix + ":events"
}

// Publish 实现 mix.Publisher，队列满时丢弃并记录
func (c *NowPlayingCache) Publish(_ context.Context, msg model.PushMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("mirror: failed to marshal message", logger.String("topic", msg.Topic()), logger.ErrorField(err))
		c.metrics.Write(err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.jobs <- mirrorJob{topic: msg.Topic(), data: data}:
	default:
		logger.Warn("mirror backlog full, dropping message", logger.String("topic", msg.Topic()))
		c.metrics.Write(errors.New("backlog full"))
	}
}

// Latest 读取最近一次镜像的快照
func (c *NowPlayingCache) Latest(ctx context.Context, topic string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, c.SnapshotKey(topic)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return data, nil
}

// Close 停止后台写入，已排队的消息会写完
func (c *NowPlayingCache) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.jobs)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *NowPlayingCache) run() {
	defer close(c.done)
	for job := range c.jobs {
		err := c.write(job)
		c.metrics.Write(err)
		if err != nil {
			logger.Warn("mirror write failed", logger.String("topic", job.topic), logger.ErrorField(err))
		}
	}
}

func (c *NowPlayingCache) write(job mirrorJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, c.SnapshotKey(job.topic), job.data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", c.SnapshotKey(job.topic), err)
	}
	if err := c.rdb.Publish(ctx, c.EventsChannel(), job.data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", c.EventsChannel(), err)
	}
	return nil
}
