package repository

import (
	"gorm.io/gorm"

	"olympia_live/internal/models"
)

// EventRepository 管理每場比賽的事件日誌，只追加
// ID 由廣播器以 snowflake 產生，單場內嚴格遞增
type EventRepository interface {
	Append(ev *models.MatchEvent) error
	ListSince(matchID uint, afterID int64, limit int) ([]models.MatchEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ev *models.MatchEvent) error {
	return r.db.Create(ev).Error
}

// ListSince 取出指定事件之後的事件，供客戶端補拉遺漏
func (r *eventRepository) ListSince(matchID uint, afterID int64, limit int) ([]models.MatchEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var events []models.MatchEvent
	err := r.db.Where("match_id = ? AND id > ?", matchID, afterID).
		Order("id ASC").Limit(limit).Find(&events).Error
	return events, err
}
