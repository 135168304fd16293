package mix

import "DeckCast/model"

// Compose 按路由表顺序挑出正在对听众播放的 deck
// 未映射、通道不存在或未上线、deck 未加载或未播放的都直接跳过
func Compose(decks map[string]model.DeckStatus, channels map[int]model.ChannelStatus, clock model.MasterClock, routing RoutingTable) *model.NowPlaying {
	np := &model.NowPlaying{
		BPM:        clock.BPM,
		SongsOnAir: make([]model.DeckStatus, 0, len(routing.decks)),
	}

	for _, deck := range routing.decks {
		ch, ok := routing.ChannelFor(deck)
		if !ok {
			continue
		}
		if chStatus, ok := channels[ch]; !ok || !chStatus.IsOnAir {
			continue
		}
		status, ok := decks[deck]
		if !ok || !status.IsPlaying {
			continue
		}
		np.SongsOnAir = append(np.SongsOnAir, status)
	}
	return np
}
