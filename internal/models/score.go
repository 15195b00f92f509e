package models

import (
	"gorm.io/gorm"
)

// MatchScore 表示一位選手在單一賽制中的累計得分
// 由規則引擎隨每次裁決增量維護，恆等於該賽制已裁決作答的得分總和
type MatchScore struct {
	gorm.Model
	MatchID   uint      `gorm:"not null;uniqueIndex:idx_score_key" json:"match_id"`
	PlayerID  uint      `gorm:"not null;uniqueIndex:idx_score_key" json:"player_id"`
	RoundType RoundType `gorm:"not null;uniqueIndex:idx_score_key" json:"round_type"`
	Points    int       `gorm:"not null;default:0" json:"points"`
}
