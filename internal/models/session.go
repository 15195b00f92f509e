package models

import (
	"time"

	"gorm.io/gorm"
)

// LiveSession 表示一場比賽「當下」的即時狀態，每場比賽恰好一筆
// 所有欄位只能由指令處理器透過版本比對更新，Version 不符即重試
type LiveSession struct {
	gorm.Model
	MatchID                uint          `gorm:"not null;uniqueIndex" json:"match_id"`
	Status                 SessionStatus `gorm:"not null;default:pending" json:"status"`
	JoinCode               string        `gorm:"index" json:"join_code"` // 公開入場代碼，重開房時輪換
	RequiresPlayerPassword bool          `json:"requires_player_password"`
	CurrentRoundID         *uint         `json:"current_round_id,omitempty"`
	CurrentRoundType       RoundType     `json:"current_round_type,omitempty"`
	CurrentQuestionID      *uint         `json:"current_question_id,omitempty"`
	QuestionState          QuestionState `gorm:"not null;default:hidden" json:"question_state"`
	TimerDeadline          *time.Time    `json:"timer_deadline,omitempty"` // 給客戶端渲染倒數用，伺服器不主動觸發
	BuzzerEnabled          bool          `json:"buzzer_enabled"`
	Version                int64         `gorm:"not null;default:0" json:"version"` // 樂觀鎖版本號，單調遞增
}

// SessionStatus 定義場次狀態的類型
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusRunning SessionStatus = "running"
	SessionStatusEnded   SessionStatus = "ended"
)

// QuestionState 定義當前題目的展示階段
type QuestionState string

const (
	QuestionHidden         QuestionState = "hidden"
	QuestionShowing        QuestionState = "showing"
	QuestionAnswerRevealed QuestionState = "answer_revealed"
	QuestionCompleted      QuestionState = "completed"
)
