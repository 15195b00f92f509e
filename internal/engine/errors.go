package engine

import "errors"

// 引擎層的錯誤分類，處理器據此對應 HTTP 狀態碼
// Conflict 可由呼叫端重試，其餘錯誤直接回報
var (
	ErrNotFound           = errors.New("資源不存在")
	ErrInvalidState       = errors.New("指令不符合當前狀態")
	ErrConflict           = errors.New("版本衝突")
	ErrAlreadyJudged      = errors.New("該作答已裁決")
	ErrAlreadyAnswered    = errors.New("該選手已作答")
	ErrUnauthorized       = errors.New("無此操作權限")
	ErrRoundNotConfigured = errors.New("回合尚未設定")
	ErrBuzzerDisabled     = errors.New("搶答未開放")
	ErrWrongRound         = errors.New("題目不屬於當前回合")
	ErrNoLiveQuestion     = errors.New("沒有進行中的題目")
	ErrAlreadyEnded       = errors.New("場次已結束")
	ErrInvalidRound       = errors.New("此賽制不支援該操作")
	ErrDisqualified       = errors.New("該選手已喪失資格")
	ErrNotYourTurn        = errors.New("非該選手的答題回合")
)
