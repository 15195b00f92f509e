package repository

import (
	"errors"

	"gorm.io/gorm"

	"olympia_live/internal/models"
)

// AnswerRepository 管理作答、押星與累計得分
// is_correct/points_awarded 由規則引擎經由 Save 寫入，裁決後不再變動
type AnswerRepository interface {
	Create(answer *models.Answer) error
	Save(answer *models.Answer) error
	FindByQuestionAndPlayer(questionID, playerID uint) (*models.Answer, error)
	ListByQuestion(questionID uint) ([]models.Answer, error)

	UpsertStar(star *models.StarUse) error
	FindStar(questionID, playerID uint) (*models.StarUse, error)
	SaveStar(star *models.StarUse) error

	AddPoints(matchID, playerID uint, roundType models.RoundType, delta int) error
	ListScores(matchID uint) ([]models.MatchScore, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(answer *models.Answer) error {
	return r.db.Create(answer).Error
}

func (r *answerRepository) Save(answer *models.Answer) error {
	return r.db.Save(answer).Error
}

func (r *answerRepository) FindByQuestionAndPlayer(questionID, playerID uint) (*models.Answer, error) {
	var answer models.Answer
	err := r.db.Where("round_question_id = ? AND player_id = ?", questionID, playerID).First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 查無作答不是錯誤，交由呼叫端判斷
		}
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) ListByQuestion(questionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.Where("round_question_id = ?", questionID).Find(&answers).Error
	return answers, err
}

func (r *answerRepository) UpsertStar(star *models.StarUse) error {
	existing, err := r.FindStar(star.RoundQuestionID, star.PlayerID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Armed = star.Armed
		*star = *existing
		return r.db.Save(existing).Error
	}
	return r.db.Create(star).Error
}

func (r *answerRepository) FindStar(questionID, playerID uint) (*models.StarUse, error) {
	var star models.StarUse
	err := r.db.Where("round_question_id = ? AND player_id = ?", questionID, playerID).First(&star).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &star, nil
}

func (r *answerRepository) SaveStar(star *models.StarUse) error {
	return r.db.Save(star).Error
}

// AddPoints 增量維護 (比賽, 選手, 賽制) 的累計得分，無此紀錄時先建立
func (r *answerRepository) AddPoints(matchID, playerID uint, roundType models.RoundType, delta int) error {
	var score models.MatchScore
	err := r.db.Where("match_id = ? AND player_id = ? AND round_type = ?", matchID, playerID, roundType).
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		score = models.MatchScore{
			MatchID:   matchID,
			PlayerID:  playerID,
			RoundType: roundType,
			Points:    delta,
		}
		return r.db.Create(&score).Error
	}
	if err != nil {
		return err
	}
	score.Points += delta
	return r.db.Save(&score).Error
}

func (r *answerRepository) ListScores(matchID uint) ([]models.MatchScore, error) {
	var scores []models.MatchScore
	err := r.db.Where("match_id = ?", matchID).Order("player_id ASC, round_type ASC").Find(&scores).Error
	return scores, err
}
