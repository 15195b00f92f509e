package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"olympia_live/internal/models"
	"olympia_live/internal/repository"
)

// fixture 建立一場四座位、四回合齊備的測試比賽
// 資料庫為測試專屬的記憶體 sqlite，測試間互不干擾
type fixture struct {
	svc     *SessionService
	repos   *repository.Repositories
	match   *models.Match
	players map[int]*models.MatchPlayer // 座位號 -> 選手
	rounds  map[models.RoundType]*models.MatchRound
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.MatchRound{},
		&models.RoundQuestion{},
		&models.MatchPlayer{},
		&models.LiveSession{},
		&models.BuzzerEvent{},
		&models.Answer{},
		&models.StarUse{},
		&models.MatchScore{},
		&models.MatchEvent{},
	))
	return db
}

func newSessionService(t *testing.T, repos *repository.Repositories) *SessionService {
	t.Helper()
	broadcaster, err := NewBroadcaster(1, NewWebSocketManager())
	require.NoError(t, err)
	arbiter := NewBuzzerArbiter(repos, broadcaster)
	return NewSessionService(repos, broadcaster, arbiter)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := repository.NewRepositories(openTestDB(t))

	match := &models.Match{Name: "測試場", Status: models.MatchStatusDraft, HostID: 1}
	require.NoError(t, repos.Match.Create(match))

	players := make(map[int]*models.MatchPlayer, 4)
	for seat := 1; seat <= 4; seat++ {
		p := &models.MatchPlayer{
			MatchID:     match.ID,
			SeatIndex:   seat,
			DisplayName: fmt.Sprintf("選手%d", seat),
		}
		require.NoError(t, repos.Match.CreatePlayer(p))
		players[seat] = p
	}

	rounds := make(map[models.RoundType]*models.MatchRound, 4)
	for i, rt := range []models.RoundType{models.RoundKhoiDong, models.RoundVCNV, models.RoundTangToc, models.RoundVeDich} {
		round := &models.MatchRound{MatchID: match.ID, RoundType: rt, OrderIndex: i + 1}
		require.NoError(t, repos.Match.CreateRound(round))
		rounds[rt] = round
	}

	return &fixture{
		svc:     newSessionService(t, repos),
		repos:   repos,
		match:   match,
		players: players,
		rounds:  rounds,
	}
}

// addQuestion 在指定回合加一道題
func (f *fixture) addQuestion(t *testing.T, roundType models.RoundType, mutate func(*models.RoundQuestion)) *models.RoundQuestion {
	t.Helper()
	round := f.rounds[roundType]
	require.NotNil(t, round)

	q := &models.RoundQuestion{
		MatchRoundID: round.ID,
		OrderIndex:   1,
		Content:      "題目內容",
		AnswerText:   "標準答案",
	}
	if mutate != nil {
		mutate(q)
	}
	require.NoError(t, f.repos.Match.CreateQuestion(q))
	return q
}

// scores 以 (座位號, 賽制) 彙整當前累計得分
func (f *fixture) scores(t *testing.T) map[uint]map[models.RoundType]int {
	t.Helper()
	rows, err := f.repos.Answer.ListScores(f.match.ID)
	require.NoError(t, err)

	out := make(map[uint]map[models.RoundType]int)
	for _, row := range rows {
		if out[row.PlayerID] == nil {
			out[row.PlayerID] = make(map[models.RoundType]int)
		}
		out[row.PlayerID][row.RoundType] += row.Points
	}
	return out
}

// session 重新讀取場次的最新狀態
func (f *fixture) session(t *testing.T) *models.LiveSession {
	t.Helper()
	sess, err := f.repos.Session.FindByMatchID(f.match.ID)
	require.NoError(t, err)
	return sess
}
