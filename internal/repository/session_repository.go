package repository

import (
	"time"

	"gorm.io/gorm"

	"olympia_live/internal/engine"
	"olympia_live/internal/models"
)

// SessionRepository 管理 LiveSession：每場比賽的即時狀態聚合
// 寫入一律走 UpdateVersioned 的版本比對，是同場比賽所有指令的序列化點
type SessionRepository interface {
	Create(sess *models.LiveSession) error
	FindByID(id uint) (*models.LiveSession, error)
	FindByMatchID(matchID uint) (*models.LiveSession, error)
	FindByJoinCode(code string) (*models.LiveSession, error)
	UpdateVersioned(sess *models.LiveSession) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(sess *models.LiveSession) error {
	return r.db.Create(sess).Error
}

func (r *sessionRepository) FindByID(id uint) (*models.LiveSession, error) {
	var sess models.LiveSession
	if err := r.db.First(&sess, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &sess, nil
}

func (r *sessionRepository) FindByMatchID(matchID uint) (*models.LiveSession, error) {
	var sess models.LiveSession
	if err := r.db.Where("match_id = ?", matchID).First(&sess).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &sess, nil
}

func (r *sessionRepository) FindByJoinCode(code string) (*models.LiveSession, error) {
	var sess models.LiveSession
	err := r.db.Where("join_code = ? AND status = ?", code, models.SessionStatusRunning).First(&sess).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &sess, nil
}

// UpdateVersioned 以樂觀鎖寫回場次狀態：
// 只在資料庫內的版本號與讀出時一致才更新，否則回傳 ErrConflict 由呼叫端重讀重試。
// 成功時 sess.Version 已遞增
func (r *sessionRepository) UpdateVersioned(sess *models.LiveSession) error {
	readVersion := sess.Version
	result := r.db.Model(&models.LiveSession{}).
		Where("id = ? AND version = ?", sess.ID, readVersion).
		Updates(map[string]interface{}{
			"status":                   sess.Status,
			"join_code":                sess.JoinCode,
			"requires_player_password": sess.RequiresPlayerPassword,
			"current_round_id":         sess.CurrentRoundID,
			"current_round_type":       sess.CurrentRoundType,
			"current_question_id":      sess.CurrentQuestionID,
			"question_state":           sess.QuestionState,
			"timer_deadline":           sess.TimerDeadline,
			"buzzer_enabled":           sess.BuzzerEnabled,
			"version":                  readVersion + 1,
			"updated_at":               time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return engine.ErrConflict
	}
	sess.Version = readVersion + 1
	return nil
}
