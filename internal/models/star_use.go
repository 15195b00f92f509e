package models

import (
	"gorm.io/gorm"
)

// StarUse 表示 ve_dich 回合的押星紀錄：答對加倍、答錯倒扣
type StarUse struct {
	gorm.Model
	MatchID         uint        `gorm:"not null;index" json:"match_id"`
	RoundQuestionID uint        `gorm:"not null;uniqueIndex:idx_star_question_player" json:"round_question_id"`
	PlayerID        uint        `gorm:"not null;uniqueIndex:idx_star_question_player" json:"player_id"`
	Armed           bool        `json:"armed"`
	Outcome         StarOutcome `json:"outcome,omitempty"` // 裁決後回填
}

// StarOutcome 定義押星結算結果的類型
type StarOutcome string

const (
	StarOutcomeDoubled StarOutcome = "doubled"
	StarOutcomeLost    StarOutcome = "lost"
)
