package models

import (
	"time"
)

// MatchEvent 表示事件日誌中的一筆狀態變更，僅追加不修改
// 主鍵為 snowflake ID：同場比賽內嚴格遞增，客戶端據此去重與補拉
type MatchEvent struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	MatchID   uint      `gorm:"not null;index" json:"match_id"`
	Entity    string    `gorm:"not null" json:"entity"` // 變更的實體種類，如 session/answer/buzzer
	EntityID  uint      `json:"entity_id"`
	EventType EventType `gorm:"not null" json:"event_type"`
	Payload   string    `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType 定義事件種類
type EventType string

const (
	EventRoomOpened     EventType = "room_opened"
	EventRoomEnded      EventType = "room_ended"
	EventRoundSet       EventType = "round_set"
	EventQuestionShown  EventType = "question_shown"
	EventQuestionState  EventType = "question_state_changed"
	EventTimerStarted   EventType = "timer_started"
	EventBuzzerSet      EventType = "buzzer_set"
	EventBuzzerLocked   EventType = "buzzer_locked"
	EventAnswerReceived EventType = "answer_received"
	EventDecisionMade   EventType = "decision_made"
	EventStarToggled    EventType = "star_toggled"
	EventScoresUpdated  EventType = "scores_updated"
	EventPlayersChanged EventType = "players_changed"
)
