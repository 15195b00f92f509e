package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"olympia_live/internal/engine"
	"olympia_live/internal/models"
	"olympia_live/internal/repository"
	"olympia_live/pkg/logger"
)

// 版本衝突的內部重試上限，超過即把 Conflict 回報給呼叫端
const maxConflictRetries = 3

// SessionService 是指令處理器：驗證前置條件、委派規則引擎與搶答仲裁、
// 在單一交易內寫入 Store 並追加事件，提交後推播。
// 同一場比賽的指令以 LiveSession 版本比對線性化，不同比賽互不干擾
type SessionService struct {
	repos       *repository.Repositories
	broadcaster *Broadcaster
	arbiter     *BuzzerArbiter
	snapshots   singleflight.Group // 重連風暴時合併相同的快照查詢
}

func NewSessionService(repos *repository.Repositories, broadcaster *Broadcaster, arbiter *BuzzerArbiter) *SessionService {
	return &SessionService{
		repos:       repos,
		broadcaster: broadcaster,
		arbiter:     arbiter,
	}
}

// newJoinCode 產生公開入場代碼，重開房時輪換
func newJoinCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:6])
}

// withSession 以「讀取、修改、版本比對寫回」的迴圈執行一個指令：
// fn 在交易內收到當前場次狀態，回傳要追加的事件；
// 版本不符時整筆回滾重來，重試耗盡才回傳 Conflict
func (s *SessionService) withSession(matchID uint, fn func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error)) error {
	var (
		pending []*models.MatchEvent
		err     error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		pending = nil
		err = s.repos.Transaction(func(tx *repository.Repositories) error {
			sess, txErr := tx.Session.FindByMatchID(matchID)
			if txErr != nil {
				return txErr
			}
			events, txErr := fn(tx, sess)
			if txErr != nil {
				return txErr
			}
			if txErr := tx.Session.UpdateVersioned(sess); txErr != nil {
				return txErr
			}
			for _, ev := range events {
				if txErr := tx.Event.Append(ev); txErr != nil {
					return txErr
				}
			}
			pending = events
			return nil
		})
		if errors.Is(err, engine.ErrConflict) {
			continue
		}
		break
	}
	if err != nil {
		return err
	}
	s.broadcaster.Fanout(pending...)
	return nil
}

// OpenRoom 開房：第一次開房建立場次，重開則重置狀態並輪換入場代碼
// 回合、題目、選手設定不受影響
func (s *SessionService) OpenRoom(ctx context.Context, matchID uint, requiresPassword bool) (*models.LiveSession, error) {
	var result *models.LiveSession
	err := s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		match, err := tx.Match.FindByID(matchID)
		if err != nil {
			return nil, err
		}

		// 重開房：重置即時狀態，不刪紀錄
		sess.Status = models.SessionStatusRunning
		sess.JoinCode = newJoinCode()
		sess.RequiresPlayerPassword = requiresPassword
		sess.CurrentRoundID = nil
		sess.CurrentRoundType = ""
		sess.CurrentQuestionID = nil
		sess.QuestionState = models.QuestionHidden
		sess.TimerDeadline = nil
		sess.BuzzerEnabled = false

		match.Status = models.MatchStatusLive
		if err := tx.Match.Update(match); err != nil {
			return nil, err
		}

		result = sess
		ev := s.broadcaster.NewEvent(matchID, "session", sess.ID, models.EventRoomOpened, map[string]interface{}{
			"join_code": sess.JoinCode,
		})
		return []*models.MatchEvent{ev}, nil
	})
	if errors.Is(err, engine.ErrNotFound) && result == nil {
		// 尚無場次，走首次開房
		return s.createRoom(ctx, matchID, requiresPassword)
	}
	if err != nil {
		return nil, err
	}
	logger.Info(ctx).Uint("match_id", matchID).Str("join_code", result.JoinCode).Msg("開房")
	return result, nil
}

// createRoom 首次開房：建立場次並把比賽標記為進行中
func (s *SessionService) createRoom(ctx context.Context, matchID uint, requiresPassword bool) (*models.LiveSession, error) {
	var (
		result  *models.LiveSession
		pending []*models.MatchEvent
	)
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		match, err := tx.Match.FindByID(matchID)
		if err != nil {
			return err
		}

		sess := &models.LiveSession{
			MatchID:                matchID,
			Status:                 models.SessionStatusRunning,
			JoinCode:               newJoinCode(),
			RequiresPlayerPassword: requiresPassword,
			QuestionState:          models.QuestionHidden,
		}
		if err := tx.Session.Create(sess); err != nil {
			return err
		}

		match.Status = models.MatchStatusLive
		if err := tx.Match.Update(match); err != nil {
			return err
		}

		ev := s.broadcaster.NewEvent(matchID, "session", sess.ID, models.EventRoomOpened, map[string]interface{}{
			"join_code": sess.JoinCode,
		})
		if err := tx.Event.Append(ev); err != nil {
			return err
		}
		pending = append(pending, ev)
		result = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Fanout(pending...)
	logger.Info(ctx).Uint("match_id", matchID).Str("join_code", result.JoinCode).Msg("開房")
	return result, nil
}

// EndRoom 關房：場次結束、比賽標記為已完賽
func (s *SessionService) EndRoom(ctx context.Context, matchID uint) error {
	err := s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status == models.SessionStatusEnded {
			return nil, engine.ErrAlreadyEnded
		}
		sess.Status = models.SessionStatusEnded
		sess.TimerDeadline = nil
		sess.BuzzerEnabled = false

		match, err := tx.Match.FindByID(matchID)
		if err != nil {
			return nil, err
		}
		match.Status = models.MatchStatusFinished
		if err := tx.Match.Update(match); err != nil {
			return nil, err
		}

		ev := s.broadcaster.NewEvent(matchID, "session", sess.ID, models.EventRoomEnded, nil)
		return []*models.MatchEvent{ev}, nil
	})
	if err != nil {
		return err
	}
	logger.Info(ctx).Uint("match_id", matchID).Msg("關房")
	return nil
}

// SetRound 切換當前回合，題目狀態重置為隱藏
func (s *SessionService) SetRound(ctx context.Context, matchID uint, roundType models.RoundType) error {
	return s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning {
			return nil, engine.ErrInvalidState
		}
		round, err := tx.Match.FindRoundByType(matchID, roundType)
		if errors.Is(err, engine.ErrNotFound) {
			return nil, engine.ErrRoundNotConfigured
		}
		if err != nil {
			return nil, err
		}

		sess.CurrentRoundID = &round.ID
		sess.CurrentRoundType = round.RoundType
		sess.CurrentQuestionID = nil
		sess.QuestionState = models.QuestionHidden
		sess.TimerDeadline = nil
		sess.BuzzerEnabled = false

		ev := s.broadcaster.NewEvent(matchID, "session", sess.ID, models.EventRoundSet, map[string]interface{}{
			"round_id":   round.ID,
			"round_type": round.RoundType,
		})
		return []*models.MatchEvent{ev}, nil
	})
}

// ShowQuestion 亮題：題目必須屬於當前回合
// 啟動回合的共用題自動開放搶答，其餘題型搶答關閉
func (s *SessionService) ShowQuestion(ctx context.Context, matchID uint, questionID uint) error {
	return s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning || sess.CurrentRoundID == nil {
			return nil, engine.ErrInvalidState
		}
		q, err := tx.Match.FindQuestion(questionID)
		if err != nil {
			return nil, err
		}
		if q.MatchRoundID != *sess.CurrentRoundID {
			return nil, engine.ErrWrongRound
		}

		sess.CurrentQuestionID = &q.ID
		sess.QuestionState = models.QuestionShowing
		sess.TimerDeadline = nil
		sess.BuzzerEnabled = sess.CurrentRoundType == models.RoundKhoiDong && !q.IsPersonal()

		ev := s.broadcaster.NewEvent(matchID, "question", q.ID, models.EventQuestionShown, map[string]interface{}{
			"question_id":    q.ID,
			"order_index":    q.OrderIndex,
			"code":           q.Code,
			"point_value":    q.PointValue,
			"buzzer_enabled": sess.BuzzerEnabled,
		})
		return []*models.MatchEvent{ev}, nil
	})
}

// RevealAnswer 公布答案
func (s *SessionService) RevealAnswer(ctx context.Context, matchID uint) error {
	return s.transitionQuestion(matchID, models.QuestionAnswerRevealed, models.QuestionShowing)
}

// CompleteQuestion 收題，題目進入完結狀態
func (s *SessionService) CompleteQuestion(ctx context.Context, matchID uint) error {
	return s.transitionQuestion(matchID, models.QuestionCompleted, models.QuestionShowing, models.QuestionAnswerRevealed)
}

func (s *SessionService) transitionQuestion(matchID uint, to models.QuestionState, from ...models.QuestionState) error {
	return s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning || sess.CurrentQuestionID == nil {
			return nil, engine.ErrNoLiveQuestion
		}
		allowed := false
		for _, st := range from {
			if sess.QuestionState == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, engine.ErrInvalidState
		}

		sess.QuestionState = to
		if to == models.QuestionCompleted {
			sess.TimerDeadline = nil
			sess.BuzzerEnabled = false
		}

		ev := s.broadcaster.NewEvent(matchID, "question", *sess.CurrentQuestionID, models.EventQuestionState, map[string]interface{}{
			"question_state": to,
		})
		return []*models.MatchEvent{ev}, nil
	})
}

// StartTimer 設定倒數截止時間
// durationMs 為 0 時採用賽制預設時長；截止時間僅供客戶端渲染，
// 逾時是主持人明確下達的裁決指令，伺服器不主動觸發狀態轉移
func (s *SessionService) StartTimer(ctx context.Context, matchID uint, durationMs int64) error {
	return s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning || sess.CurrentQuestionID == nil ||
			sess.QuestionState != models.QuestionShowing {
			return nil, engine.ErrNoLiveQuestion
		}

		duration := time.Duration(durationMs) * time.Millisecond
		if duration <= 0 {
			q, err := tx.Match.FindQuestion(*sess.CurrentQuestionID)
			if err != nil {
				return nil, err
			}
			cfg, err := s.currentRoundConfig(tx, sess)
			if err != nil {
				return nil, err
			}
			duration = engine.TimerDuration(sess.CurrentRoundType, q, cfg)
		}

		deadline := time.Now().UTC().Add(duration)
		sess.TimerDeadline = &deadline

		ev := s.broadcaster.NewEvent(matchID, "session", sess.ID, models.EventTimerStarted, map[string]interface{}{
			"deadline":    deadline,
			"duration_ms": duration.Milliseconds(),
		})
		return []*models.MatchEvent{ev}, nil
	})
}

// SetBuzzer 手動開關搶答
func (s *SessionService) SetBuzzer(ctx context.Context, matchID uint, enabled bool) error {
	return s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning || sess.CurrentQuestionID == nil ||
			sess.QuestionState != models.QuestionShowing {
			return nil, engine.ErrNoLiveQuestion
		}
		sess.BuzzerEnabled = enabled

		ev := s.broadcaster.NewEvent(matchID, "session", sess.ID, models.EventBuzzerSet, map[string]interface{}{
			"buzzer_enabled": enabled,
		})
		return []*models.MatchEvent{ev}, nil
	})
}

// Buzz 搶答，委派給仲裁器
func (s *SessionService) Buzz(ctx context.Context, matchID, playerID uint) (models.BuzzResult, error) {
	return s.arbiter.Buzz(ctx, matchID, playerID)
}

// SubmitAnswer 受理作答
// 個人題與衝刺題只收指定選手；啟動共用題只收搶答勝者；
// 障礙題允許在裁決前覆寫，其餘賽制一人一次
func (s *SessionService) SubmitAnswer(ctx context.Context, matchID, questionID, playerID uint, text string, responseTimeMs int64) (*models.Answer, error) {
	var result *models.Answer
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}
	err := s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning || sess.CurrentQuestionID == nil ||
			*sess.CurrentQuestionID != questionID {
			return nil, engine.ErrNoLiveQuestion
		}
		if sess.QuestionState != models.QuestionShowing {
			return nil, engine.ErrInvalidState
		}

		player, err := tx.Match.FindPlayer(playerID)
		if err != nil {
			return nil, err
		}
		if player.MatchID != matchID {
			return nil, engine.ErrUnauthorized
		}
		if player.Disqualified && sess.CurrentRoundType == models.RoundVCNV {
			return nil, engine.ErrDisqualified
		}

		q, err := tx.Match.FindQuestion(questionID)
		if err != nil {
			return nil, err
		}
		if err := s.checkTurn(tx, sess, q, playerID); err != nil {
			return nil, err
		}

		answer, err := tx.Answer.FindByQuestionAndPlayer(questionID, playerID)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		if answer != nil {
			if answer.Judged() {
				return nil, engine.ErrAlreadyJudged
			}
			// 只有障礙回合允許在裁決前改答案
			if sess.CurrentRoundType != models.RoundVCNV {
				return nil, engine.ErrAlreadyAnswered
			}
			answer.AnswerText = text
			answer.ResponseTimeMs = responseTimeMs
			answer.SubmittedAt = now
			if err := tx.Answer.Save(answer); err != nil {
				return nil, err
			}
		} else {
			answer = &models.Answer{
				RoundQuestionID: questionID,
				PlayerID:        playerID,
				AnswerText:      text,
				ResponseTimeMs:  responseTimeMs,
				SubmittedAt:     now,
			}
			if err := tx.Answer.Create(answer); err != nil {
				return nil, err
			}
		}

		ev := s.broadcaster.NewEvent(matchID, "answer", answer.ID, models.EventAnswerReceived, map[string]interface{}{
			"question_id":      questionID,
			"player_id":        playerID,
			"seat_index":       player.SeatIndex,
			"answer_text":      text,
			"response_time_ms": responseTimeMs,
		})
		result = answer
		return []*models.MatchEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkTurn 驗證輪次歸屬：回傳 ErrNotYourTurn 表示不是該選手的題
func (s *SessionService) checkTurn(tx *repository.Repositories, sess *models.LiveSession, q *models.RoundQuestion, playerID uint) error {
	seatMap, err := s.seatMap(tx, sess.MatchID)
	if err != nil {
		return err
	}

	var buzzerWinner *uint
	if sess.CurrentRoundType == models.RoundKhoiDong && !q.IsPersonal() {
		winner, err := tx.Buzzer.WinnerOf(q.ID)
		if err != nil {
			return err
		}
		if winner == nil {
			// 共用題要先有搶答勝者才開放作答
			return engine.ErrInvalidState
		}
		buzzerWinner = &winner.PlayerID
	}

	active, err := engine.ResolveActivePlayer(sess.CurrentRoundType, q, buzzerWinner, seatMap)
	if err != nil {
		return err
	}
	if active != nil && *active != playerID {
		return engine.ErrNotYourTurn
	}
	return nil
}

func (s *SessionService) seatMap(tx *repository.Repositories, matchID uint) (map[int]uint, error) {
	players, err := tx.Match.ListPlayers(matchID)
	if err != nil {
		return nil, err
	}
	seatMap := make(map[int]uint, len(players))
	for _, p := range players {
		seatMap[p.SeatIndex] = p.ID
	}
	return seatMap, nil
}

// JudgeDecision 主持人裁決：委派規則引擎計分並更新累計得分
// 同一 (題目, 選手) 重複裁決回傳 AlreadyJudged，不會重複計分；
// 沒有作答紀錄也可裁決（口頭作答、逾時），會補一筆空白作答
func (s *SessionService) JudgeDecision(ctx context.Context, matchID, questionID, playerID uint, decision models.Decision) (int, error) {
	var delta int
	err := s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning {
			return nil, engine.ErrInvalidState
		}
		if sess.CurrentRoundID == nil {
			return nil, engine.ErrNoLiveQuestion
		}

		q, err := tx.Match.FindQuestion(questionID)
		if err != nil {
			return nil, err
		}
		if q.MatchRoundID != *sess.CurrentRoundID {
			return nil, engine.ErrWrongRound
		}

		player, err := tx.Match.FindPlayer(playerID)
		if err != nil {
			return nil, err
		}
		if player.MatchID != matchID {
			return nil, engine.ErrUnauthorized
		}

		// 啟動回合的共用題要等搶答鎖定勝者才能裁決，且只能裁決勝者
		if sess.CurrentRoundType == models.RoundKhoiDong && !q.IsPersonal() {
			winner, err := tx.Buzzer.WinnerOf(questionID)
			if err != nil {
				return nil, err
			}
			if winner == nil {
				return nil, engine.ErrInvalidState
			}
			if winner.PlayerID != playerID {
				return nil, engine.ErrNotYourTurn
			}
		}

		cfg, err := s.currentRoundConfig(tx, sess)
		if err != nil {
			return nil, err
		}

		answer, err := tx.Answer.FindByQuestionAndPlayer(questionID, playerID)
		if err != nil {
			return nil, err
		}
		if answer == nil {
			answer = &models.Answer{
				RoundQuestionID: questionID,
				PlayerID:        playerID,
				SubmittedAt:     time.Now().UTC(),
			}
			if err := tx.Answer.Create(answer); err != nil {
				return nil, err
			}
		}

		var star *models.StarUse
		starArmed := false
		if sess.CurrentRoundType == models.RoundVeDich {
			star, err = tx.Answer.FindStar(questionID, playerID)
			if err != nil {
				return nil, err
			}
			starArmed = star != nil && star.Armed
		}

		outcome, err := engine.ResolveDecision(engine.DecisionContext{
			RoundType: sess.CurrentRoundType,
			Config:    cfg,
			Question:  q,
			Answer:    answer,
			StarArmed: starArmed,
		}, decision)
		if err != nil {
			return nil, err
		}

		correct := outcome.Correct
		answer.IsCorrect = &correct
		answer.Decision = decision
		answer.PointsAwarded = outcome.PointsDelta
		if err := tx.Answer.Save(answer); err != nil {
			return nil, err
		}

		if outcome.StarOutcome != "" && star != nil {
			star.Outcome = outcome.StarOutcome
			if err := tx.Answer.SaveStar(star); err != nil {
				return nil, err
			}
		}

		events := make([]*models.MatchEvent, 0, 2)
		events = append(events, s.broadcaster.NewEvent(matchID, "answer", answer.ID, models.EventDecisionMade, map[string]interface{}{
			"question_id":  questionID,
			"player_id":    playerID,
			"seat_index":   player.SeatIndex,
			"decision":     decision,
			"points_delta": outcome.PointsDelta,
			"star_outcome": outcome.StarOutcome,
		}))

		if !outcome.Deferred && outcome.PointsDelta != 0 {
			if err := tx.Answer.AddPoints(matchID, playerID, sess.CurrentRoundType, outcome.PointsDelta); err != nil {
				return nil, err
			}
			events = append(events, s.scoresEvent(tx, matchID))
		}

		delta = outcome.PointsDelta
		return events, nil
	})
	if err != nil {
		return 0, err
	}
	logger.Info(ctx).
		Uint("match_id", matchID).
		Uint("question_id", questionID).
		Uint("player_id", playerID).
		Str("decision", string(decision)).
		Int("points_delta", delta).
		Msg("裁決")
	return delta, nil
}

// FinalizeSpeedQuestion 加速回合結算：
// 依作答耗時對答對者做全域排名並發放層級配分，與請求到達順序無關。
// 已結算過的題目回傳 AlreadyJudged，不會重複發分
func (s *SessionService) FinalizeSpeedQuestion(ctx context.Context, matchID, questionID uint) ([]engine.RankedAward, error) {
	var awards []engine.RankedAward
	err := s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning {
			return nil, engine.ErrInvalidState
		}
		if sess.CurrentRoundType != models.RoundTangToc {
			return nil, engine.ErrInvalidRound
		}
		if sess.CurrentQuestionID == nil || *sess.CurrentQuestionID != questionID {
			return nil, engine.ErrNoLiveQuestion
		}

		answers, err := tx.Answer.ListByQuestion(questionID)
		if err != nil {
			return nil, err
		}
		for _, a := range answers {
			if a.PointsAwarded != 0 {
				return nil, engine.ErrAlreadyJudged
			}
		}

		cfg, err := s.currentRoundConfig(tx, sess)
		if err != nil {
			return nil, err
		}

		awards = engine.RankSpeedAnswers(answers, cfg.SpeedTiers)
		for _, award := range awards {
			if award.Points == 0 {
				continue
			}
			for i := range answers {
				if answers[i].ID == award.AnswerID {
					answers[i].PointsAwarded = award.Points
					if err := tx.Answer.Save(&answers[i]); err != nil {
						return nil, err
					}
					break
				}
			}
			if err := tx.Answer.AddPoints(matchID, award.PlayerID, models.RoundTangToc, award.Points); err != nil {
				return nil, err
			}
		}

		sess.QuestionState = models.QuestionCompleted
		sess.TimerDeadline = nil

		events := []*models.MatchEvent{
			s.broadcaster.NewEvent(matchID, "question", questionID, models.EventQuestionState, map[string]interface{}{
				"question_state": models.QuestionCompleted,
				"awards":         awards,
			}),
			s.scoresEvent(tx, matchID),
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return awards, nil
}

// ToggleStar 押星或撤回，僅衝刺回合且裁決前有效
func (s *SessionService) ToggleStar(ctx context.Context, matchID, questionID, playerID uint, armed bool) error {
	return s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		if sess.Status != models.SessionStatusRunning {
			return nil, engine.ErrInvalidState
		}
		if sess.CurrentRoundType != models.RoundVeDich {
			return nil, engine.ErrInvalidRound
		}

		q, err := tx.Match.FindQuestion(questionID)
		if err != nil {
			return nil, err
		}
		if sess.CurrentRoundID == nil || q.MatchRoundID != *sess.CurrentRoundID {
			return nil, engine.ErrWrongRound
		}
		if !q.StarAllowed {
			return nil, engine.ErrInvalidState
		}

		answer, err := tx.Answer.FindByQuestionAndPlayer(questionID, playerID)
		if err != nil {
			return nil, err
		}
		if answer != nil && answer.Judged() {
			return nil, engine.ErrAlreadyJudged
		}

		star := &models.StarUse{
			MatchID:         matchID,
			RoundQuestionID: questionID,
			PlayerID:        playerID,
			Armed:           armed,
		}
		if err := tx.Answer.UpsertStar(star); err != nil {
			return nil, err
		}

		ev := s.broadcaster.NewEvent(matchID, "star", questionID, models.EventStarToggled, map[string]interface{}{
			"question_id": questionID,
			"player_id":   playerID,
			"armed":       armed,
		})
		return []*models.MatchEvent{ev}, nil
	})
}

// SetDisqualified 設定選手的障礙回合資格
func (s *SessionService) SetDisqualified(ctx context.Context, matchID, playerID uint, disqualified bool) error {
	return s.withSession(matchID, func(tx *repository.Repositories, sess *models.LiveSession) ([]*models.MatchEvent, error) {
		player, err := tx.Match.FindPlayer(playerID)
		if err != nil {
			return nil, err
		}
		if player.MatchID != matchID {
			return nil, engine.ErrUnauthorized
		}
		player.Disqualified = disqualified
		if err := tx.Match.UpdatePlayer(player); err != nil {
			return nil, err
		}

		ev := s.broadcaster.NewEvent(matchID, "player", player.ID, models.EventPlayersChanged, map[string]interface{}{
			"player_id":    player.ID,
			"seat_index":   player.SeatIndex,
			"disqualified": disqualified,
		})
		return []*models.MatchEvent{ev}, nil
	})
}

func (s *SessionService) currentRoundConfig(tx *repository.Repositories, sess *models.LiveSession) (models.RoundConfig, error) {
	if sess.CurrentRoundID == nil {
		return models.RoundConfig{}, nil
	}
	round, err := tx.Match.FindRound(*sess.CurrentRoundID)
	if err != nil {
		return models.RoundConfig{}, err
	}
	return round.ParseConfig()
}

// scoresEvent 產生最新計分板事件
func (s *SessionService) scoresEvent(tx *repository.Repositories, matchID uint) *models.MatchEvent {
	scores, err := tx.Answer.ListScores(matchID)
	if err != nil {
		logger.Error(context.Background()).Err(err).Uint("match_id", matchID).Msg("讀取計分板失敗")
		scores = nil
	}
	return s.broadcaster.NewEvent(matchID, "score", matchID, models.EventScoresUpdated, map[string]interface{}{
		"scores": scores,
	})
}

// ResolveJoinCode 由入場代碼找到進行中的場次
func (s *SessionService) ResolveJoinCode(code string) (*models.LiveSession, error) {
	return s.repos.Session.FindByJoinCode(code)
}

// EventsSince 供客戶端補拉遺漏事件
// 與即時推播同一套去敏規則：作答內容只給主持人，其他角色拿到的
// answer_received 事件不含內容
func (s *SessionService) EventsSince(ctx context.Context, matchID uint, afterID int64, limit int, role models.UserRole) ([]models.MatchEvent, error) {
	events, err := s.repos.Event.ListSince(matchID, afterID, limit)
	if err != nil {
		return nil, err
	}
	if role != models.RoleHost {
		for i := range events {
			if redacted := redactForViewer(&events[i]); redacted != &events[i] {
				events[i] = *redacted
			}
		}
	}
	return events, nil
}

// QuestionView 是題目在快照中的投影，答案原文只給主持人或公布後的觀眾
type QuestionView struct {
	ID             uint   `json:"id"`
	OrderIndex     int    `json:"order_index"`
	Code           string `json:"code"`
	PointValue     int    `json:"point_value"`
	StarAllowed    bool   `json:"star_allowed"`
	TargetPlayerID *uint  `json:"target_player_id,omitempty"`
	Content        string `json:"content,omitempty"`
	AnswerText     string `json:"answer_text,omitempty"`
}

// SessionSnapshot 是場次完整狀態的一致性讀取，
// 客戶端漏接事件時以此重新對齊，事件流只是增量通知
type SessionSnapshot struct {
	Session *models.LiveSession  `json:"session"`
	Players []models.MatchPlayer `json:"players"`
	Scores  []models.MatchScore  `json:"scores"`
	Current *QuestionView        `json:"current_question,omitempty"`
}

// Snapshot 依入場代碼組出場次快照
// 相同 (場次, 角色) 的併發查詢以 singleflight 合併，抵擋重連風暴
func (s *SessionService) Snapshot(ctx context.Context, joinCode string, role models.UserRole) (*SessionSnapshot, error) {
	key := fmt.Sprintf("%s:%s", joinCode, role)
	v, err, _ := s.snapshots.Do(key, func() (interface{}, error) {
		return s.buildSnapshot(joinCode, role)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SessionSnapshot), nil
}

func (s *SessionService) buildSnapshot(joinCode string, role models.UserRole) (*SessionSnapshot, error) {
	sess, err := s.repos.Session.FindByJoinCode(joinCode)
	if err != nil {
		return nil, err
	}

	players, err := s.repos.Match.ListPlayers(sess.MatchID)
	if err != nil {
		return nil, err
	}
	scores, err := s.repos.Answer.ListScores(sess.MatchID)
	if err != nil {
		return nil, err
	}

	snapshot := &SessionSnapshot{
		Session: sess,
		Players: players,
		Scores:  scores,
	}

	if sess.CurrentQuestionID != nil {
		q, err := s.repos.Match.FindQuestion(*sess.CurrentQuestionID)
		if err != nil {
			return nil, err
		}
		view := &QuestionView{
			ID:             q.ID,
			OrderIndex:     q.OrderIndex,
			Code:           q.Code,
			PointValue:     q.PointValue,
			StarAllowed:    q.StarAllowed,
			TargetPlayerID: q.TargetPlayerID,
		}
		// 題幹只在亮題後可見，答案原文要等主持人公布
		if sess.QuestionState != models.QuestionHidden {
			view.Content = q.Content
		}
		if role == models.RoleHost || sess.QuestionState == models.QuestionAnswerRevealed ||
			sess.QuestionState == models.QuestionCompleted {
			view.AnswerText = q.AnswerText
		}
		snapshot.Current = view
	}
	return snapshot, nil
}
