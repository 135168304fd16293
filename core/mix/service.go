package mix

import (
	"context"
	"sync"

	"DeckCast/logger"
	"DeckCast/model"
)

// Publisher 推送消息的出口（WebSocket hub、Redis 镜像等）
type Publisher interface {
	Publish(ctx context.Context, msg model.PushMessage)
}

// Publishers 把同一条消息依次交给多个 Publisher
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, msg model.PushMessage) {
	for _, p := range ps {
		if p != nil {
			p.Publish(ctx, msg)
		}
	}
}

// Service 摄取网关背后的核心：写入存储、判断是否广播、生成快照并推送
// 进程启动时创建一次，通过指针传给各个 handler
// 写入、生成快照、推送三步在 pushMu 下完成，推送顺序与写入顺序一致
// Publisher 只做非阻塞入队，锁内没有网络 I/O
type Service struct {
	store     *Store
	routing   RoutingTable
	publisher Publisher

	pushMu sync.Mutex
}

// NewService 创建 Service，publisher 可以为 nil
func NewService(store *Store, routing RoutingTable, publisher Publisher) *Service {
	if publisher == nil {
		publisher = Publishers(nil)
	}
	return &Service{store: store, routing: routing, publisher: publisher}
}

// Store 返回底层存储
func (s *Service) Store() *Store {
	return s.store
}

// Routing 返回路由表
func (s *Service) Routing() RoutingTable {
	return s.routing
}

// SeedChannels 把路由表里出现的通道全部预置为 on-air
func (s *Service) SeedChannels() {
	s.store.SeedChannels(s.routing.Channels())
}

// LoadDeck 处理 deckLoaded 事件
func (s *Service) LoadDeck(ctx context.Context, label string, status model.DeckStatus) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.store.LoadDeck(label, status)
	logger.Info("deck loaded", logger.String("deck", label), logger.String("file", status.FilePath))
	s.publisher.Publish(ctx, s.compose(""))
}

// UpdateDeck 处理 updateDeck 事件；未知 deck 只记录日志并返回 ErrUnknownDeck
func (s *Service) UpdateDeck(ctx context.Context, label string, delta model.DeckUpdate) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	significant, err := s.store.UpdateDeck(label, delta)
	if err != nil {
		logger.Warn("update for deck that was never loaded", logger.String("deck", label), logger.ErrorField(err))
		return err
	}
	if significant {
		s.publisher.Publish(ctx, s.compose(label))
	}
	return nil
}

// SetChannel 处理 updateChannel 事件
func (s *Service) SetChannel(ctx context.Context, number int, status model.ChannelStatus) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.store.SetChannel(number, status)
	logger.Debug("channel updated", logger.Int("channel", number), logger.Bool("onAir", status.IsOnAir))
	s.publisher.Publish(ctx, s.compose(""))
}

// SetClock 处理 updateMasterClock 事件，只推送时钟消息
func (s *Service) SetClock(ctx context.Context, clock model.MasterClock) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.store.SetClock(clock)
	s.publisher.Publish(ctx, model.NewClockUpdate(clock))
}

// NowPlaying 当前快照
func (s *Service) NowPlaying() *model.NowPlaying {
	return s.compose("")
}

func (s *Service) compose(ticked string) *model.NowPlaying {
	decks, channels, clock := s.store.Snapshot()
	np := Compose(decks, channels, clock, s.routing)
	np.TickedDeck = ticked
	return np
}
