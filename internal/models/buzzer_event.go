package models

import (
	"time"

	"gorm.io/gorm"
)

// BuzzerEvent 表示一次搶答嘗試的不可變紀錄
// OccurredAt 由仲裁器在寫入交易內蓋章，不採信客戶端時間
type BuzzerEvent struct {
	gorm.Model
	RoundQuestionID uint       `gorm:"not null;index" json:"round_question_id"`
	PlayerID        uint       `gorm:"not null" json:"player_id"`
	Result          BuzzResult `gorm:"not null" json:"result"`
	OccurredAt      time.Time  `gorm:"not null" json:"occurred_at"`
}

// BuzzResult 定義搶答判定結果的類型
type BuzzResult string

const (
	BuzzPending BuzzResult = "pending"
	BuzzWinner  BuzzResult = "winner"
	BuzzTooLate BuzzResult = "too_late"
	BuzzInvalid BuzzResult = "invalid"
)
