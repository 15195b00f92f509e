package repository

import (
	"errors"

	"gorm.io/gorm"

	"olympia_live/internal/models"
)

// BuzzerRepository 管理搶答紀錄，只增不改
type BuzzerRepository interface {
	Create(ev *models.BuzzerEvent) error
	ListByQuestion(questionID uint) ([]models.BuzzerEvent, error)
	WinnerOf(questionID uint) (*models.BuzzerEvent, error)
}

type buzzerRepository struct {
	db *gorm.DB
}

func NewBuzzerRepository(db *gorm.DB) BuzzerRepository {
	return &buzzerRepository{db: db}
}

func (r *buzzerRepository) Create(ev *models.BuzzerEvent) error {
	return r.db.Create(ev).Error
}

func (r *buzzerRepository) ListByQuestion(questionID uint) ([]models.BuzzerEvent, error) {
	var events []models.BuzzerEvent
	err := r.db.Where("round_question_id = ?", questionID).Order("occurred_at ASC, id ASC").Find(&events).Error
	return events, err
}

// WinnerOf 查詢該題目前的搶答勝者，尚無勝者時回傳 nil
func (r *buzzerRepository) WinnerOf(questionID uint) (*models.BuzzerEvent, error) {
	var ev models.BuzzerEvent
	err := r.db.Where("round_question_id = ? AND result = ?", questionID, models.BuzzWinner).First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}
