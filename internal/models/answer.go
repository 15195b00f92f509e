package models

import (
	"time"

	"gorm.io/gorm"
)

// Answer 表示一位選手對一道題目的作答，同一題每位選手至多一筆
// IsCorrect 在主持人裁決前為空；裁決寫入後即不可變
type Answer struct {
	gorm.Model
	RoundQuestionID uint      `gorm:"not null;uniqueIndex:idx_question_player" json:"round_question_id"`
	PlayerID        uint      `gorm:"not null;uniqueIndex:idx_question_player" json:"player_id"`
	AnswerText      string    `gorm:"type:text" json:"answer_text"`
	IsCorrect       *bool     `json:"is_correct,omitempty"`
	Decision        Decision  `json:"decision,omitempty"` // 裁決種類，timeout 與 wrong 需區分以供統計
	PointsAwarded   int       `json:"points_awarded"`
	ResponseTimeMs  int64     `json:"response_time_ms"`
	SubmittedAt     time.Time `gorm:"not null" json:"submitted_at"`
}

// Judged 回報此作答是否已被裁決
func (a *Answer) Judged() bool {
	return a.IsCorrect != nil
}

// Decision 定義主持人裁決的類型
type Decision string

const (
	DecisionCorrect Decision = "correct"
	DecisionWrong   Decision = "wrong"
	DecisionTimeout Decision = "timeout"
)

// Valid 檢查是否為已知的裁決種類
func (d Decision) Valid() bool {
	switch d {
	case DecisionCorrect, DecisionWrong, DecisionTimeout:
		return true
	}
	return false
}
