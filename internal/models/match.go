package models

import (
	"time"

	"gorm.io/gorm"
)

// Match 表示一場比賽
type Match struct {
	gorm.Model
	Name         string      `gorm:"not null" json:"name"`
	Status       MatchStatus `gorm:"not null;default:draft" json:"status"`
	ScheduledAt  *time.Time  `json:"scheduled_at"`
	HostID       uint        `json:"host_id"`
	TournamentID *uint       `json:"tournament_id,omitempty"` // 所屬賽事，可為空
}

// MatchStatus 定義比賽狀態的類型
// 狀態只能由開房/關房指令驅動，不允許手動改寫
type MatchStatus string

const (
	MatchStatusDraft     MatchStatus = "draft"
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
	MatchStatusCancelled MatchStatus = "cancelled"
)
