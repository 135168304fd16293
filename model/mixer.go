package model

// ChannelStatus 混音台通道状态
type ChannelStatus struct {
	IsOnAir bool `json:"isOnAir"` // 通道声音是否对听众可闻
}

// MasterClock 主时钟，每次事件整体替换
type MasterClock struct {
	Deck *string `json:"deck"` // 当前 master deck，可能为空
	BPM  float64 `json:"bpm"`
}

// MinChannel / MaxChannel 通道号的合法范围
const (
	MinChannel = 0
	MaxChannel = 255
)
