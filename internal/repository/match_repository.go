package repository

import (
	"gorm.io/gorm"

	"olympia_live/internal/models"
)

// MatchRepository 管理比賽設定面的資料：比賽、回合、題目、選手
// 這些資料在開賽前由管理端建立，場次進行中只讀
type MatchRepository interface {
	Create(match *models.Match) error
	FindByID(id uint) (*models.Match, error)
	Update(match *models.Match) error
	FindAll() ([]models.Match, error)

	CreateRound(round *models.MatchRound) error
	FindRound(id uint) (*models.MatchRound, error)
	FindRoundByType(matchID uint, roundType models.RoundType) (*models.MatchRound, error)
	ListRounds(matchID uint) ([]models.MatchRound, error)

	CreateQuestion(q *models.RoundQuestion) error
	FindQuestion(id uint) (*models.RoundQuestion, error)
	ListQuestions(roundID uint) ([]models.RoundQuestion, error)
	UpdateQuestion(q *models.RoundQuestion) error

	CreatePlayer(p *models.MatchPlayer) error
	FindPlayer(id uint) (*models.MatchPlayer, error)
	ListPlayers(matchID uint) ([]models.MatchPlayer, error)
	UpdatePlayer(p *models.MatchPlayer) error
}

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(match *models.Match) error {
	return r.db.Create(match).Error
}

func (r *matchRepository) FindByID(id uint) (*models.Match, error) {
	var match models.Match
	if err := r.db.First(&match, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &match, nil
}

func (r *matchRepository) Update(match *models.Match) error {
	return r.db.Save(match).Error
}

// FindAll 查詢所有比賽，新的在前
func (r *matchRepository) FindAll() ([]models.Match, error) {
	var matches []models.Match
	err := r.db.Order("created_at DESC").Find(&matches).Error
	return matches, err
}

func (r *matchRepository) CreateRound(round *models.MatchRound) error {
	return r.db.Create(round).Error
}

func (r *matchRepository) FindRound(id uint) (*models.MatchRound, error) {
	var round models.MatchRound
	if err := r.db.First(&round, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &round, nil
}

func (r *matchRepository) FindRoundByType(matchID uint, roundType models.RoundType) (*models.MatchRound, error) {
	var round models.MatchRound
	err := r.db.Where("match_id = ? AND round_type = ?", matchID, roundType).First(&round).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &round, nil
}

func (r *matchRepository) ListRounds(matchID uint) ([]models.MatchRound, error) {
	var rounds []models.MatchRound
	err := r.db.Where("match_id = ?", matchID).Order("order_index ASC").Find(&rounds).Error
	return rounds, err
}

func (r *matchRepository) CreateQuestion(q *models.RoundQuestion) error {
	return r.db.Create(q).Error
}

func (r *matchRepository) FindQuestion(id uint) (*models.RoundQuestion, error) {
	var q models.RoundQuestion
	if err := r.db.First(&q, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &q, nil
}

func (r *matchRepository) ListQuestions(roundID uint) ([]models.RoundQuestion, error) {
	var questions []models.RoundQuestion
	err := r.db.Where("match_round_id = ?", roundID).Order("order_index ASC").Find(&questions).Error
	return questions, err
}

func (r *matchRepository) UpdateQuestion(q *models.RoundQuestion) error {
	return r.db.Save(q).Error
}

func (r *matchRepository) CreatePlayer(p *models.MatchPlayer) error {
	return r.db.Create(p).Error
}

func (r *matchRepository) FindPlayer(id uint) (*models.MatchPlayer, error) {
	var player models.MatchPlayer
	if err := r.db.First(&player, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &player, nil
}

func (r *matchRepository) ListPlayers(matchID uint) ([]models.MatchPlayer, error) {
	var players []models.MatchPlayer
	err := r.db.Where("match_id = ?", matchID).Order("seat_index ASC").Find(&players).Error
	return players, err
}

func (r *matchRepository) UpdatePlayer(p *models.MatchPlayer) error {
	return r.db.Save(p).Error
}
