package mix

import "DeckCast/model"

// IsSignificant 判断一个 updateDeck 增量是否值得广播
// 播放/同步/锁调状态变化总是广播；elapsedTime、tempo 每秒多次，只有开启 verbose 才广播；
// resultingKey、nextCuePos 单独变化从不广播
func IsSignificant(delta model.DeckUpdate, verbose bool) bool {
	if delta.IsPlaying != nil || delta.IsSynced != nil || delta.IsKeyLockOn != nil {
		return true
	}
	if verbose && (delta.ElapsedTime != nil || delta.Tempo != nil) {
		return true
	}
	return false
}
