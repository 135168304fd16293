package mix

import "sort"

// RoutingTable deck -> 混音台通道的映射，运行期只读
// decks 的顺序决定 now playing 列表的顺序
type RoutingTable struct {
	decks    []string
	channels map[string]int
}

// NewRoutingTable 创建路由表，入参会被拷贝
func NewRoutingTable(decks []string, channels map[string]int) RoutingTable {
	t := RoutingTable{
		decks:    append([]string(nil), decks...),
		channels: make(map[string]int, len(channels)),
	}
	for deck, ch := range channels {
		t.channels[deck] = ch
	}
	return t
}

// Decks 按配置顺序返回 deck 列表
func (t RoutingTable) Decks() []string {
	return append([]string(nil), t.decks...)
}

// ChannelFor 查询 deck 对应的通道
func (t RoutingTable) ChannelFor(deck string) (int, bool) {
	ch, ok := t.channels[deck]
	return ch, ok
}

// Channels 去重后按通道号升序返回被路由到的通道
func (t RoutingTable) Channels() []int {
	seen := make(map[int]struct{}, len(t.channels))
	out := make([]int, 0, len(t.channels))
	for _, ch := range t.channels {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	sort.Ints(out)
	return out
}
