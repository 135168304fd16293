package model

// DeckStatus 单个 deck 的完整状态（deckLoaded 事件的请求体）
// 元数据字段均为可选，仅用于展示
type DeckStatus struct {
	Deck        string   `json:"deck,omitempty"` // 加载时由服务端写入
	FilePath    string   `json:"filePath"`
	Title       *string  `json:"title,omitempty"`
	Artist      *string  `json:"artist,omitempty"`
	Album       *string  `json:"album,omitempty"`
	Genre       *string  `json:"genre,omitempty"`
	Comment     *string  `json:"comment,omitempty"`
	Comment2    *string  `json:"comment2,omitempty"`
	Label       *string  `json:"label,omitempty"`
	Mix         *string  `json:"mix,omitempty"`
	Remixer     *string  `json:"remixer,omitempty"`
	Key         int      `json:"key"`
	KeyText     string   `json:"keyText"`
	GridOffset  float64  `json:"gridOffset"`
	TrackLength float64  `json:"trackLength"`
	ElapsedTime float64  `json:"elapsedTime"`
	NextCuePos  *float64 `json:"nextCuePos,omitempty"`
	BPM         float64  `json:"bpm"`
	Tempo       float64  `json:"tempo"`
	// ResultingKey 变调后的实际调性
	ResultingKey int  `json:"resultingKey"`
	IsPlaying    bool `json:"isPlaying"`
	IsSynced     bool `json:"isSynced"`
	IsKeyLockOn  bool `json:"isKeyLockOn"`
}

// DeckUpdate updateDeck 事件的增量，未出现的字段保持原值
type DeckUpdate struct {
	ElapsedTime  *float64 `json:"elapsedTime,omitempty"`
	NextCuePos   *float64 `json:"nextCuePos,omitempty"`
	IsPlaying    *bool    `json:"isPlaying,omitempty"`
	IsSynced     *bool    `json:"isSynced,omitempty"`
	IsKeyLockOn  *bool    `json:"isKeyLockOn,omitempty"`
	Tempo        *float64 `json:"tempo,omitempty"`
	ResultingKey *int     `json:"resultingKey,omitempty"`
}

// Apply 将增量中出现的字段逐个写入 s
func (s *DeckStatus) Apply(d DeckUpdate) {
	if d.ElapsedTime != nil {
		s.ElapsedTime = *d.ElapsedTime
	}
	if d.NextCuePos != nil {
		pos := *d.NextCuePos
		s.NextCuePos = &pos
	}
	if d.IsPlaying != nil {
		s.IsPlaying = *d.IsPlaying
	}
	if d.IsSynced != nil {
		s.IsSynced = *d.IsSynced
	}
	if d.IsKeyLockOn != nil {
		s.IsKeyLockOn = *d.IsKeyLockOn
	}
	if d.Tempo != nil {
		s.Tempo = *d.Tempo
	}
	if d.ResultingKey != nil {
		s.ResultingKey = *d.ResultingKey
	}
}
