package model

// 推送消息的主题
const (
	TopicNowPlaying = "nowplaying"
	TopicClock      = "clock"
)

// PushMessage 推送给订阅者的消息
type PushMessage interface {
	Topic() string
}

// NowPlaying 当前在播曲目快照
type NowPlaying struct {
	BPM        float64      `json:"bpm"`
	SongsOnAir []DeckStatus `json:"songsOnAir"`
	// TickedDeck 触发本次推送的 deck（仅 updateDeck 触发时存在）
	TickedDeck string `json:"tickedDeck,omitempty"`
}

// Topic implements PushMessage.
func (*NowPlaying) Topic() string { return TopicNowPlaying }

// ClockUpdate 主时钟变化消息
type ClockUpdate struct {
	BPM        float64 `json:"bpm"`
	MasterDeck *string `json:"masterDeck"`
}

// Topic implements PushMessage.
func (*ClockUpdate) Topic() string { return TopicClock }

// NewClockUpdate 由主时钟生成推送消息
func NewClockUpdate(c MasterClock) *ClockUpdate {
	return &ClockUpdate{BPM: c.BPM, MasterDeck: c.Deck}
}
