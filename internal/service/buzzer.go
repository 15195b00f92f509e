package service

import (
	"context"
	"errors"
	"time"

	"olympia_live/internal/engine"
	"olympia_live/internal/models"
	"olympia_live/internal/repository"
	"olympia_live/pkg/logger"
)

// BuzzerArbiter 仲裁搶答先後：
// 同一題只會產生一個 winner，先後以寫入交易內蓋章的伺服器時間為準，
// 不採信客戶端時間，避免時鐘偏移作弊。
// 「第一個」的判定以 LiveSession 的版本比對為序列化點：
// 兩個請求同時認定自己是第一時，版本寫入只會有一方成功，
// 敗方整筆回滾後重試，重讀即看到已有勝者
type BuzzerArbiter struct {
	repos       *repository.Repositories
	broadcaster *Broadcaster
}

func NewBuzzerArbiter(repos *repository.Repositories, broadcaster *Broadcaster) *BuzzerArbiter {
	return &BuzzerArbiter{repos: repos, broadcaster: broadcaster}
}

// Buzz 處理一次搶答
// 回傳判定結果與不合格原因；winner 以外的結果對選手是非阻斷狀態，
// 不合格的搶答仍留下 invalid 紀錄，比賽照常進行
func (a *BuzzerArbiter) Buzz(ctx context.Context, matchID, playerID uint) (models.BuzzResult, error) {
	var (
		result  models.BuzzResult
		soft    error
		pending []*models.MatchEvent
		err     error
	)

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		result, soft, pending = "", nil, nil
		err = a.repos.Transaction(func(tx *repository.Repositories) error {
			var txErr error
			result, soft, pending, txErr = a.buzzOnce(tx, matchID, playerID)
			return txErr
		})
		if errors.Is(err, engine.ErrConflict) {
			continue
		}
		break
	}
	if err != nil {
		return "", err
	}

	a.broadcaster.Fanout(pending...)
	logger.Info(ctx).
		Uint("match_id", matchID).
		Uint("player_id", playerID).
		Str("result", string(result)).
		Msg("搶答判定")
	return result, soft
}

// buzzOnce 在單一交易內完成一次仲裁
// 回傳值依序為：判定結果、不合格原因（交易照常提交）、待推播事件、交易錯誤（整筆回滾）
func (a *BuzzerArbiter) buzzOnce(tx *repository.Repositories, matchID, playerID uint) (models.BuzzResult, error, []*models.MatchEvent, error) {
	sess, err := tx.Session.FindByMatchID(matchID)
	if err != nil {
		return "", nil, nil, err
	}
	if sess.Status != models.SessionStatusRunning || sess.CurrentQuestionID == nil {
		return "", nil, nil, engine.ErrNoLiveQuestion
	}
	questionID := *sess.CurrentQuestionID

	player, err := tx.Match.FindPlayer(playerID)
	if err != nil {
		return "", nil, nil, err
	}
	if player.MatchID != matchID {
		return "", nil, nil, engine.ErrUnauthorized
	}

	now := time.Now().UTC()

	// 先看是否已有勝者：勝者鎖定時會一併關閉搶答，
	// 晚到的合法搶答必須記為 too_late 而不是 invalid
	winner, err := tx.Buzzer.WinnerOf(questionID)
	if err != nil {
		return "", nil, nil, err
	}
	if winner != nil {
		ev := &models.BuzzerEvent{
			RoundQuestionID: questionID,
			PlayerID:        playerID,
			Result:          models.BuzzTooLate,
			OccurredAt:      now,
		}
		if err := tx.Buzzer.Create(ev); err != nil {
			return "", nil, nil, err
		}
		return models.BuzzTooLate, nil, nil, nil
	}

	// 不合法的搶答仍然留下紀錄，但對勝負與比分毫無影響
	reason, err := a.rejectReason(tx, sess, player)
	if err != nil {
		return "", nil, nil, err
	}
	if reason != nil {
		ev := &models.BuzzerEvent{
			RoundQuestionID: questionID,
			PlayerID:        playerID,
			Result:          models.BuzzInvalid,
			OccurredAt:      now,
		}
		if err := tx.Buzzer.Create(ev); err != nil {
			return "", nil, nil, err
		}
		return models.BuzzInvalid, reason, nil, nil
	}

	// 第一個合法搶答：寫入勝者並鎖定搶答，等待主持人裁決
	ev := &models.BuzzerEvent{
		RoundQuestionID: questionID,
		PlayerID:        playerID,
		Result:          models.BuzzWinner,
		OccurredAt:      now,
	}
	if err := tx.Buzzer.Create(ev); err != nil {
		return "", nil, nil, err
	}

	sess.BuzzerEnabled = false
	if err := tx.Session.UpdateVersioned(sess); err != nil {
		return "", nil, nil, err
	}

	locked := a.broadcaster.NewEvent(matchID, "buzzer", questionID, models.EventBuzzerLocked, map[string]interface{}{
		"round_question_id": questionID,
		"player_id":         playerID,
		"seat_index":        player.SeatIndex,
		"occurred_at":       now,
	})
	if err := tx.Event.Append(locked); err != nil {
		return "", nil, nil, err
	}

	return models.BuzzWinner, nil, []*models.MatchEvent{locked}, nil
}

// rejectReason 檢查搶答資格
// 第一個回傳值是不合格原因，nil 表示可以參與仲裁；第二個是查詢錯誤
func (a *BuzzerArbiter) rejectReason(tx *repository.Repositories, sess *models.LiveSession, player *models.MatchPlayer) (error, error) {
	if sess.QuestionState != models.QuestionShowing {
		return engine.ErrInvalidState, nil
	}
	if !sess.BuzzerEnabled {
		return engine.ErrBuzzerDisabled, nil
	}
	if player.Disqualified && sess.CurrentRoundType == models.RoundVCNV {
		return engine.ErrDisqualified, nil
	}
	// 個人題沒有搶答，指定選手以外按鈴一律不合法
	if sess.CurrentRoundType == models.RoundKhoiDong {
		q, err := tx.Match.FindQuestion(*sess.CurrentQuestionID)
		if err != nil {
			return nil, err
		}
		if q.IsPersonal() {
			return engine.ErrInvalidState, nil
		}
	}
	return nil, nil
}
