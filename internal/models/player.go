package models

import (
	"gorm.io/gorm"
)

// MatchPlayer 表示比賽中的一個參賽座位（1~4 號）
type MatchPlayer struct {
	gorm.Model
	MatchID      uint   `gorm:"not null;uniqueIndex:idx_match_seat" json:"match_id"`
	SeatIndex    int    `gorm:"not null;uniqueIndex:idx_match_seat" json:"seat_index"` // 座位號，同場比賽內唯一
	DisplayName  string `gorm:"not null" json:"display_name"`
	UserID       *uint  `json:"user_id,omitempty"` // 綁定的帳號，允許未綁定
	Disqualified bool   `json:"disqualified"`      // 障礙回合喪失搶答資格
}
