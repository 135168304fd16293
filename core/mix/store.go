package mix

import (
	"errors"
	"fmt"
	"sync"

	"DeckCast/logger"
	"DeckCast/model"
)

// ErrUnknownDeck updateDeck 收到了尚未 deckLoaded 的 deck
var ErrUnknownDeck = errors.New("deck is not loaded")

// Store 混音状态存储
// decks / channels / clock 各自一把读写锁，写不同的表互不阻塞；
// 因此 Snapshot 的三部分之间不保证原子性
type Store struct {
	verbose bool

	decksMu sync.RWMutex
	decks   map[string]model.DeckStatus

	channelsMu sync.RWMutex
	channels   map[int]model.ChannelStatus

	clockMu sync.RWMutex
	clock   model.MasterClock

	onFault func(op string, recovered interface{})
}

// StoreOption 存储选项
type StoreOption func(*Store)

// WithVerboseEvents elapsedTime / tempo 变化也视为需要广播
func WithVerboseEvents(verbose bool) StoreOption {
	return func(s *Store) { s.verbose = verbose }
}

// WithFaultHandler 替换写入过程中 panic 的处理方式（默认直接退出进程）
func WithFaultHandler(fn func(op string, recovered interface{})) StoreOption {
	return func(s *Store) { s.onFault = fn }
}

// NewStore 创建空的状态存储
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		decks:    make(map[string]model.DeckStatus),
		channels: make(map[int]model.ChannelStatus),
		onFault:  abortOnFault,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// abortOnFault 写锁内发生 panic 后表状态无法确认，只能终止进程
func abortOnFault(op string, recovered interface{}) {
	logger.Fatal("entity map write panicked, state integrity lost",
		logger.String("op", op),
		logger.Any("panic", recovered))
}

// write 持有 mu 的写锁执行 fn
// net/http 会 recover handler 的 panic，这里必须先截获，不能让半写入的状态继续服务
func (s *Store) write(mu *sync.RWMutex, op string, fn func()) {
	mu.Lock()
	defer mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.onFault(op, r)
		}
	}()
	fn()
}

// Verbose 是否开启高频事件广播
func (s *Store) Verbose() bool {
	return s.verbose
}

// LoadDeck 整体替换 label 对应的 deck 状态，总是需要广播
func (s *Store) LoadDeck(label string, status model.DeckStatus) {
	status.Deck = label
	s.write(&s.decksMu, "loadDeck", func() {
		s.decks[label] = status
	})
}

// UpdateDeck 把增量合并进已加载的 deck，返回是否需要广播
func (s *Store) UpdateDeck(label string, delta model.DeckUpdate) (bool, error) {
	found := false
	s.write(&s.decksMu, "updateDeck", func() {
		status, ok := s.decks[label]
		if !ok {
			return
		}
		status.Apply(delta)
		s.decks[label] = status
		found = true
	})
	if !found {
		return false, fmt.Errorf("%w: %s", ErrUnknownDeck, label)
	}
	return IsSignificant(delta, s.verbose), nil
}

// SetChannel 整体替换通道状态
func (s *Store) SetChannel(number int, status model.ChannelStatus) {
	s.write(&s.channelsMu, "setChannel", func() {
		s.channels[number] = status
	})
}

// SeedChannels 启动时把给定通道预置为 on-air，已有状态的通道不动
func (s *Store) SeedChannels(numbers []int) {
	s.write(&s.channelsMu, "seedChannels", func() {
		for _, n := range numbers {
			if _, ok := s.channels[n]; !ok {
				s.channels[n] = model.ChannelStatus{IsOnAir: true}
			}
		}
	})
}

// SetClock 整体替换主时钟
func (s *Store) SetClock(clock model.MasterClock) {
	if clock.Deck != nil {
		deck := *clock.Deck
		clock.Deck = &deck
	}
	s.write(&s.clockMu, "setClock", func() {
		s.clock = clock
	})
}

// Deck 读取单个 deck
func (s *Store) Deck(label string) (model.DeckStatus, bool) {
	s.decksMu.RLock()
	defer s.decksMu.RUnlock()
	status, ok := s.decks[label]
	return status, ok
}

// Channel 读取单个通道
func (s *Store) Channel(number int) (model.ChannelStatus, bool) {
	s.channelsMu.RLock()
	defer s.channelsMu.RUnlock()
	status, ok := s.channels[number]
	return status, ok
}

// Clock 读取主时钟
func (s *Store) Clock() model.MasterClock {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.clock
}

// Snapshot 依次拷贝三张表
func (s *Store) Snapshot() (map[string]model.DeckStatus, map[int]model.ChannelStatus, model.MasterClock) {
	s.decksMu.RLock()
	decks := make(map[string]model.DeckStatus, len(s.decks))
	for label, status := range s.decks {
		decks[label] = status
	}
	s.decksMu.RUnlock()

	s.channelsMu.RLock()
	channels := make(map[int]model.ChannelStatus, len(s.channels))
	for n, status := range s.channels {
		channels[n] = status
	}
	s.channelsMu.RUnlock()

	return decks, channels, s.Clock()
}
