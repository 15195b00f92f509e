package service

import (
	"olympia_live/internal/engine"
	"olympia_live/internal/models"
	"olympia_live/internal/repository"
)

// MatchService 管理比賽設定面：比賽、回合、題目、選手的建立與調整
// 場次進行中的狀態一律由 SessionService 經版本比對寫入，這裡不碰
type MatchService struct {
	repos *repository.Repositories
}

func NewMatchService(repos *repository.Repositories) *MatchService {
	return &MatchService{repos: repos}
}

func (s *MatchService) CreateMatch(name string, hostID uint) (*models.Match, error) {
	match := &models.Match{
		Name:   name,
		Status: models.MatchStatusDraft,
		HostID: hostID,
	}
	if err := s.repos.Match.Create(match); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *MatchService) GetMatch(id uint) (*models.Match, error) {
	return s.repos.Match.FindByID(id)
}

func (s *MatchService) ListMatches() ([]models.Match, error) {
	return s.repos.Match.FindAll()
}

// CreateRound 建立回合，同場比賽同一賽制只能有一個
func (s *MatchService) CreateRound(matchID uint, roundType models.RoundType, orderIndex int, config string) (*models.MatchRound, error) {
	if !roundType.Valid() {
		return nil, engine.ErrInvalidRound
	}
	if _, err := s.repos.Match.FindByID(matchID); err != nil {
		return nil, err
	}
	if existing, err := s.repos.Match.FindRoundByType(matchID, roundType); err == nil && existing != nil {
		return nil, engine.ErrInvalidState
	}

	round := &models.MatchRound{
		MatchID:    matchID,
		RoundType:  roundType,
		OrderIndex: orderIndex,
		Config:     config,
	}
	if err := s.repos.Match.CreateRound(round); err != nil {
		return nil, err
	}
	return round, nil
}

func (s *MatchService) ListRounds(matchID uint) ([]models.MatchRound, error) {
	return s.repos.Match.ListRounds(matchID)
}

func (s *MatchService) CreateQuestion(q *models.RoundQuestion) (*models.RoundQuestion, error) {
	if _, err := s.repos.Match.FindRound(q.MatchRoundID); err != nil {
		return nil, err
	}
	if err := s.repos.Match.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *MatchService) ListQuestions(roundID uint) ([]models.RoundQuestion, error) {
	return s.repos.Match.ListQuestions(roundID)
}

// AssignQuestionTarget 把題目指派給選手；題目建立後只有歸屬允許調整
func (s *MatchService) AssignQuestionTarget(questionID uint, playerID *uint) (*models.RoundQuestion, error) {
	q, err := s.repos.Match.FindQuestion(questionID)
	if err != nil {
		return nil, err
	}
	q.TargetPlayerID = playerID
	if err := s.repos.Match.UpdateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

// AddPlayer 為比賽加入一個座位，座位號同場唯一
func (s *MatchService) AddPlayer(matchID uint, seatIndex int, displayName string, userID *uint) (*models.MatchPlayer, error) {
	if seatIndex < 1 || seatIndex > 4 {
		return nil, engine.ErrInvalidState
	}
	if _, err := s.repos.Match.FindByID(matchID); err != nil {
		return nil, err
	}

	player := &models.MatchPlayer{
		MatchID:     matchID,
		SeatIndex:   seatIndex,
		DisplayName: displayName,
		UserID:      userID,
	}
	if err := s.repos.Match.CreatePlayer(player); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *MatchService) ListPlayers(matchID uint) ([]models.MatchPlayer, error) {
	return s.repos.Match.ListPlayers(matchID)
}

// FindPlayerForUser 找出帳號在比賽中綁定的座位，未綁定回傳 ErrUnauthorized
func (s *MatchService) FindPlayerForUser(matchID, userID uint) (*models.MatchPlayer, error) {
	players, err := s.repos.Match.ListPlayers(matchID)
	if err != nil {
		return nil, err
	}
	for i := range players {
		if players[i].UserID != nil && *players[i].UserID == userID {
			return &players[i], nil
		}
	}
	return nil, engine.ErrUnauthorized
}
