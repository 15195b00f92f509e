package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olympia_live/internal/engine"
	"olympia_live/internal/models"
	"olympia_live/internal/repository"
)

func TestOpenRoomEndRoomReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusRunning, sess.Status)
	assert.Len(t, sess.JoinCode, 6)
	firstCode := sess.JoinCode

	match, err := f.repos.Match.FindByID(f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusLive, match.Status)

	require.NoError(t, f.svc.EndRoom(ctx, f.match.ID))
	assert.Equal(t, models.SessionStatusEnded, f.session(t).Status)

	match, err = f.repos.Match.FindByID(f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, match.Status)

	// 重複關房要擋下來
	assert.ErrorIs(t, f.svc.EndRoom(ctx, f.match.ID), engine.ErrAlreadyEnded)

	// 關房後指令一律拒絕
	assert.ErrorIs(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong), engine.ErrInvalidState)

	// 重開房：入場代碼輪換、即時狀態歸零，比賽設定與紀錄不動
	reopened, err := f.svc.OpenRoom(ctx, f.match.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusRunning, reopened.Status)
	assert.NotEqual(t, firstCode, reopened.JoinCode)
	assert.True(t, reopened.RequiresPlayerPassword)
	assert.Nil(t, reopened.CurrentRoundID)
	assert.Equal(t, models.QuestionHidden, reopened.QuestionState)

	rounds, err := f.repos.Match.ListRounds(f.match.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 4)
}

func TestOpenRoomUnknownMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.OpenRoom(context.Background(), 9999, false)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestSetRoundNotConfigured(t *testing.T) {
	repos := repository.NewRepositories(openTestDB(t))
	svc := newSessionService(t, repos)
	ctx := context.Background()

	match := &models.Match{Name: "空比賽", Status: models.MatchStatusDraft, HostID: 1}
	require.NoError(t, repos.Match.Create(match))

	_, err := svc.OpenRoom(ctx, match.ID, false)
	require.NoError(t, err)

	err = svc.SetRound(ctx, match.ID, models.RoundVCNV)
	assert.ErrorIs(t, err, engine.ErrRoundNotConfigured)

	// 失敗的指令不得留下任何變更
	sess, err := repos.Session.FindByMatchID(match.ID)
	require.NoError(t, err)
	assert.Nil(t, sess.CurrentRoundID)
	assert.Equal(t, models.RoundType(""), sess.CurrentRoundType)
}

func TestShowQuestionWrongRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong))

	// 題目掛在衝刺回合，在啟動回合亮題要擋
	q := f.addQuestion(t, models.RoundVeDich, nil)
	assert.ErrorIs(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID), engine.ErrWrongRound)
	assert.Nil(t, f.session(t).CurrentQuestionID)
}

func TestKhoiDongSharedQuestionFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat1 := f.players[1]
	seat2 := f.players[2]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong))

	q := f.addQuestion(t, models.RoundKhoiDong, func(q *models.RoundQuestion) {
		q.Code = "shared-1"
	})
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))
	assert.True(t, f.session(t).BuzzerEnabled, "共用題亮題即開放搶答")

	// 勝者鎖定前不收作答
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat1.ID, "太早", 100)
	assert.ErrorIs(t, err, engine.ErrInvalidState)

	// 勝者鎖定前不可裁決
	_, err = f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat1.ID, models.DecisionCorrect)
	assert.ErrorIs(t, err, engine.ErrInvalidState)

	result, err := f.svc.Buzz(ctx, f.match.ID, seat1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuzzWinner, result)
	assert.False(t, f.session(t).BuzzerEnabled, "鎖定勝者後搶答關閉")

	result, err = f.svc.Buzz(ctx, f.match.ID, seat2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuzzTooLate, result, "晚到的合法搶答記 too_late")

	// 勝者以外的作答與裁決都要擋
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat2.ID, "不是我的題", 200)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	_, err = f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat2.ID, models.DecisionCorrect)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)

	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat1.ID, "答案", 800)
	require.NoError(t, err)

	delta, err := f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat1.ID, models.DecisionCorrect)
	require.NoError(t, err)
	assert.Equal(t, 10, delta)
	assert.Equal(t, 10, f.scores(t)[seat1.ID][models.RoundKhoiDong])

	// 重複裁決拒絕且比分不動
	_, err = f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat1.ID, models.DecisionCorrect)
	assert.ErrorIs(t, err, engine.ErrAlreadyJudged)
	assert.Equal(t, 10, f.scores(t)[seat1.ID][models.RoundKhoiDong])

	events, err := f.repos.Buzzer.ListByQuestion(q.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestKhoiDongPersonalQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat2 := f.players[2]
	seat3 := f.players[3]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong))

	// 未指定選手時依題號前綴歸位
	q := f.addQuestion(t, models.RoundKhoiDong, func(q *models.RoundQuestion) {
		q.Code = "2-01"
	})
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))
	assert.False(t, f.session(t).BuzzerEnabled, "個人題不開搶答")

	// 個人題按鈴不合法，但仍留下紀錄
	result, err := f.svc.Buzz(ctx, f.match.ID, seat3.ID)
	assert.ErrorIs(t, err, engine.ErrBuzzerDisabled)
	assert.Equal(t, models.BuzzInvalid, result)

	records, err := f.repos.Buzzer.ListByQuestion(q.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.BuzzInvalid, records[0].Result)

	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat3.ID, "別人的題", 100)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)

	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat2.ID, "我的題", 500)
	require.NoError(t, err)

	// 重複作答拒絕（啟動回合不允許改答案）
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat2.ID, "再來一次", 600)
	assert.ErrorIs(t, err, engine.ErrAlreadyAnswered)

	delta, err := f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat2.ID, models.DecisionWrong)
	require.NoError(t, err)
	assert.Equal(t, 0, delta, "答錯不扣分")
}

func TestKhoiDongTimeoutWithoutAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat1 := f.players[1]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong))

	q := f.addQuestion(t, models.RoundKhoiDong, func(q *models.RoundQuestion) {
		q.TargetPlayerID = &f.players[1].ID
		q.Code = "1-01"
	})
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	// 逾時是主持人下達的裁決，沒有作答紀錄也要能結案
	delta, err := f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat1.ID, models.DecisionTimeout)
	require.NoError(t, err)
	assert.Equal(t, 0, delta)

	answer, err := f.repos.Answer.FindByQuestionAndPlayer(q.ID, seat1.ID)
	require.NoError(t, err)
	require.NotNil(t, answer)
	assert.Equal(t, models.DecisionTimeout, answer.Decision)
	assert.True(t, answer.Judged())

	// 逾時結案後再裁決一次要擋
	_, err = f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat1.ID, models.DecisionCorrect)
	assert.ErrorIs(t, err, engine.ErrAlreadyJudged)
}

func TestVCNVIndependentAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat1 := f.players[1]
	seat2 := f.players[2]
	seat3 := f.players[3]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVCNV))

	q := f.addQuestion(t, models.RoundVCNV, nil)
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))
	assert.False(t, f.session(t).BuzzerEnabled)

	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat1.ID, "第一版", 3000)
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat2.ID, "座位二", 4000)
	require.NoError(t, err)

	// 障礙回合裁決前允許改答案
	answer, err := f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat1.ID, "改過的答案", 5000)
	require.NoError(t, err)
	assert.Equal(t, "改過的答案", answer.AnswerText)

	// 失格選手不得作答
	require.NoError(t, f.svc.SetDisqualified(ctx, f.match.ID, seat3.ID, true))
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat3.ID, "失格", 1000)
	assert.ErrorIs(t, err, engine.ErrDisqualified)

	// 各座位獨立裁決
	delta, err := f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat1.ID, models.DecisionCorrect)
	require.NoError(t, err)
	assert.Equal(t, 10, delta)

	// 裁決後不得再改答案
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat1.ID, "來不及了", 6000)
	assert.ErrorIs(t, err, engine.ErrAlreadyJudged)

	delta, err = f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat2.ID, models.DecisionWrong)
	require.NoError(t, err)
	assert.Equal(t, 0, delta)

	scores := f.scores(t)
	assert.Equal(t, 10, scores[seat1.ID][models.RoundVCNV])
	assert.Equal(t, 0, scores[seat2.ID][models.RoundVCNV])
}

func TestTangTocFinalize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat1 := f.players[1]
	seat2 := f.players[2]
	seat3 := f.players[3]
	seat4 := f.players[4]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundTangToc))

	q := f.addQuestion(t, models.RoundTangToc, nil)
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	// 提交順序刻意與耗時排名相反
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat1.ID, "慢但對", 4200)
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat2.ID, "快但錯", 1500)
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat3.ID, "最快且對", 2100)
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, seat4.ID, "次快且對", 3000)
	require.NoError(t, err)

	// 裁決只記對錯，分數要等結算
	for playerID, decision := range map[uint]models.Decision{
		seat1.ID: models.DecisionCorrect,
		seat2.ID: models.DecisionWrong,
		seat3.ID: models.DecisionCorrect,
		seat4.ID: models.DecisionCorrect,
	} {
		delta, err := f.svc.JudgeDecision(ctx, f.match.ID, q.ID, playerID, decision)
		require.NoError(t, err)
		assert.Equal(t, 0, delta)
	}
	assert.Empty(t, f.scores(t), "排名結算前不發分")

	awards, err := f.svc.FinalizeSpeedQuestion(ctx, f.match.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, awards, 3)
	assert.Equal(t, seat3.ID, awards[0].PlayerID)
	assert.Equal(t, seat4.ID, awards[1].PlayerID)
	assert.Equal(t, seat1.ID, awards[2].PlayerID)

	scores := f.scores(t)
	assert.Equal(t, 40, scores[seat3.ID][models.RoundTangToc])
	assert.Equal(t, 30, scores[seat4.ID][models.RoundTangToc])
	assert.Equal(t, 20, scores[seat1.ID][models.RoundTangToc])
	assert.Equal(t, 0, scores[seat2.ID][models.RoundTangToc])
	assert.Equal(t, models.QuestionCompleted, f.session(t).QuestionState)

	// 重複結算拒絕且比分不動
	_, err = f.svc.FinalizeSpeedQuestion(ctx, f.match.ID, q.ID)
	assert.ErrorIs(t, err, engine.ErrAlreadyJudged)
	assert.Equal(t, 40, f.scores(t)[seat3.ID][models.RoundTangToc])
}

func TestFinalizeOutsideTangToc(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong))

	q := f.addQuestion(t, models.RoundKhoiDong, func(q *models.RoundQuestion) { q.Code = "shared-1" })
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	_, err = f.svc.FinalizeSpeedQuestion(ctx, f.match.ID, q.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidRound)
}

func TestVeDichStarDoublesAndDeducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat1 := f.players[1]
	seat2 := f.players[2]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVeDich))

	q1 := f.addQuestion(t, models.RoundVeDich, func(q *models.RoundQuestion) {
		q.TargetPlayerID = &f.players[1].ID
		q.PointValue = 20
		q.StarAllowed = true
	})
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q1.ID))

	require.NoError(t, f.svc.ToggleStar(ctx, f.match.ID, q1.ID, seat1.ID, true))

	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q1.ID, seat1.ID, "押星作答", 2000)
	require.NoError(t, err)

	delta, err := f.svc.JudgeDecision(ctx, f.match.ID, q1.ID, seat1.ID, models.DecisionCorrect)
	require.NoError(t, err)
	assert.Equal(t, 40, delta, "押星答對加倍")
	assert.Equal(t, 40, f.scores(t)[seat1.ID][models.RoundVeDich])

	star, err := f.repos.Answer.FindStar(q1.ID, seat1.ID)
	require.NoError(t, err)
	require.NotNil(t, star)
	assert.Equal(t, models.StarOutcomeDoubled, star.Outcome)

	// 裁決後不得再動星標
	err = f.svc.ToggleStar(ctx, f.match.ID, q1.ID, seat1.ID, false)
	assert.ErrorIs(t, err, engine.ErrAlreadyJudged)

	// 第二題：押星答錯要倒扣題目分值
	q2 := f.addQuestion(t, models.RoundVeDich, func(q *models.RoundQuestion) {
		q.TargetPlayerID = &f.players[2].ID
		q.OrderIndex = 2
		q.PointValue = 30
		q.StarAllowed = true
	})
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q2.ID))
	require.NoError(t, f.svc.ToggleStar(ctx, f.match.ID, q2.ID, seat2.ID, true))

	delta, err = f.svc.JudgeDecision(ctx, f.match.ID, q2.ID, seat2.ID, models.DecisionWrong)
	require.NoError(t, err)
	assert.Equal(t, -30, delta)
	assert.Equal(t, -30, f.scores(t)[seat2.ID][models.RoundVeDich])

	star, err = f.repos.Answer.FindStar(q2.ID, seat2.ID)
	require.NoError(t, err)
	require.NotNil(t, star)
	assert.Equal(t, models.StarOutcomeLost, star.Outcome)
}

func TestVeDichStarWithdrawn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat1 := f.players[1]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVeDich))

	q := f.addQuestion(t, models.RoundVeDich, func(q *models.RoundQuestion) {
		q.TargetPlayerID = &f.players[1].ID
		q.PointValue = 20
		q.StarAllowed = true
	})
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	// 押了又撤，裁決時視同未押星
	require.NoError(t, f.svc.ToggleStar(ctx, f.match.ID, q.ID, seat1.ID, true))
	require.NoError(t, f.svc.ToggleStar(ctx, f.match.ID, q.ID, seat1.ID, false))

	delta, err := f.svc.JudgeDecision(ctx, f.match.ID, q.ID, seat1.ID, models.DecisionWrong)
	require.NoError(t, err)
	assert.Equal(t, 0, delta)
}

func TestToggleStarOutsideVeDich(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong))

	q := f.addQuestion(t, models.RoundKhoiDong, func(q *models.RoundQuestion) { q.Code = "shared-1" })
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	err = f.svc.ToggleStar(ctx, f.match.ID, q.ID, f.players[1].ID, true)
	assert.ErrorIs(t, err, engine.ErrInvalidRound)
}

func TestQuestionStateTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVCNV))

	q := f.addQuestion(t, models.RoundVCNV, nil)

	// 未亮題時不可公布答案
	assert.ErrorIs(t, f.svc.RevealAnswer(ctx, f.match.ID), engine.ErrNoLiveQuestion)

	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))
	require.NoError(t, f.svc.RevealAnswer(ctx, f.match.ID))
	assert.Equal(t, models.QuestionAnswerRevealed, f.session(t).QuestionState)

	// 已公布後重複公布要擋
	assert.ErrorIs(t, f.svc.RevealAnswer(ctx, f.match.ID), engine.ErrInvalidState)

	// 公布答案後不收作答
	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, f.players[1].ID, "太晚", 100)
	assert.ErrorIs(t, err, engine.ErrInvalidState)

	require.NoError(t, f.svc.CompleteQuestion(ctx, f.match.ID))
	sess := f.session(t)
	assert.Equal(t, models.QuestionCompleted, sess.QuestionState)
	assert.False(t, sess.BuzzerEnabled)
	assert.Nil(t, sess.TimerDeadline)
}

func TestStartTimerDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundTangToc))

	q := f.addQuestion(t, models.RoundTangToc, nil)
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	require.NoError(t, f.svc.StartTimer(ctx, f.match.ID, 0))
	sess := f.session(t)
	require.NotNil(t, sess.TimerDeadline, "未指定時長時採賽制預設")
}

func TestEventsAppendOnlyAndMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundKhoiDong))

	q := f.addQuestion(t, models.RoundKhoiDong, func(q *models.RoundQuestion) { q.Code = "shared-1" })
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	events, err := f.svc.EventsSince(ctx, f.match.ID, 0, 100, models.RoleHost)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, models.EventRoomOpened, events[0].EventType)

	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].ID, events[i-1].ID, "事件 ID 嚴格遞增")
	}

	// 失敗的指令不追加事件
	before := len(events)
	assert.ErrorIs(t, f.svc.SetRound(ctx, f.match.ID, "no_such_round"), engine.ErrRoundNotConfigured)
	events, err = f.svc.EventsSince(ctx, f.match.ID, 0, 100, models.RoleHost)
	require.NoError(t, err)
	assert.Len(t, events, before)

	// 補拉只回 afterID 之後的事件
	tail, err := f.svc.EventsSince(ctx, f.match.ID, events[0].ID, 100, models.RoleHost)
	require.NoError(t, err)
	assert.Len(t, tail, len(events)-1)
}

func TestSnapshotRoleVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVCNV))

	q := f.addQuestion(t, models.RoundVCNV, func(q *models.RoundQuestion) {
		q.Content = "機密題目"
		q.AnswerText = "機密答案"
	})

	// 亮題前觀眾看不到題目內容
	snap, err := f.svc.Snapshot(ctx, sess.JoinCode, models.RoleGuest)
	require.NoError(t, err)
	assert.Nil(t, snap.Current)

	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	snap, err = f.svc.Snapshot(ctx, sess.JoinCode, models.RoleGuest)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "機密題目", snap.Current.Content)
	assert.Empty(t, snap.Current.AnswerText, "公布前答案不給觀眾")

	// 主持人隨時看得到答案
	snap, err = f.svc.Snapshot(ctx, sess.JoinCode, models.RoleHost)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "機密答案", snap.Current.AnswerText)

	require.NoError(t, f.svc.RevealAnswer(ctx, f.match.ID))
	snap, err = f.svc.Snapshot(ctx, sess.JoinCode, models.RoleGuest)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "機密答案", snap.Current.AnswerText)
}

func TestResolveJoinCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)

	found, err := f.svc.ResolveJoinCode(sess.JoinCode)
	require.NoError(t, err)
	assert.Equal(t, f.match.ID, found.MatchID)

	_, err = f.svc.ResolveJoinCode("NOPE00")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestEventsRedactAnswersForNonHost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVCNV))

	q := f.addQuestion(t, models.RoundVCNV, nil)
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	_, err = f.svc.SubmitAnswer(ctx, f.match.ID, q.ID, f.players[1].ID, "機密作答內容", 1200)
	require.NoError(t, err)

	findAnswerEvent := func(events []models.MatchEvent) *models.MatchEvent {
		for i := range events {
			if events[i].EventType == models.EventAnswerReceived {
				return &events[i]
			}
		}
		return nil
	}

	// 主持人補拉看得到作答內容
	events, err := f.svc.EventsSince(ctx, f.match.ID, 0, 100, models.RoleHost)
	require.NoError(t, err)
	ev := findAnswerEvent(events)
	require.NotNil(t, ev)
	assert.Contains(t, ev.Payload, "機密作答內容")

	// 其他角色補拉拿到的作答事件不含內容：
	// 障礙回合各座位答同一題，對手也不能偷看
	for _, role := range []models.UserRole{models.RolePlayer, models.RoleGuest} {
		events, err := f.svc.EventsSince(ctx, f.match.ID, 0, 100, role)
		require.NoError(t, err)
		ev := findAnswerEvent(events)
		require.NotNil(t, ev, "事件本身照常送達")
		assert.Empty(t, ev.Payload, "role=%s", role)
	}

	// 去敏只影響回覆，事件日誌本身不動
	stored, err := f.repos.Event.ListSince(f.match.ID, 0, 100)
	require.NoError(t, err)
	ev = findAnswerEvent(stored)
	require.NotNil(t, ev)
	assert.Contains(t, ev.Payload, "機密作答內容")
}

func TestToggleStarRequiresStarAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seat1 := f.players[1]

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVeDich))

	q := f.addQuestion(t, models.RoundVeDich, func(q *models.RoundQuestion) {
		q.TargetPlayerID = &f.players[1].ID
		q.PointValue = 10
		q.StarAllowed = false
	})
	require.NoError(t, f.svc.ShowQuestion(ctx, f.match.ID, q.ID))

	err = f.svc.ToggleStar(ctx, f.match.ID, q.ID, seat1.ID, true)
	assert.ErrorIs(t, err, engine.ErrInvalidState)

	star, err := f.repos.Answer.FindStar(q.ID, seat1.ID)
	require.NoError(t, err)
	assert.Nil(t, star, "不允許押星的題目不得留下星標")
}

func TestToggleStarWrongRoundQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenRoom(ctx, f.match.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetRound(ctx, f.match.ID, models.RoundVeDich))

	// 題目掛在障礙回合，衝刺回合押星要擋
	other := f.addQuestion(t, models.RoundVCNV, nil)
	err = f.svc.ToggleStar(ctx, f.match.ID, other.ID, f.players[1].ID, true)
	assert.ErrorIs(t, err, engine.ErrWrongRound)
}

func TestReopenRotatesJoinCodeEachTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	var lastVersion int64
	for i := 0; i < 3; i++ {
		sess, err := f.svc.OpenRoom(ctx, f.match.ID, false)
		require.NoError(t, err)
		assert.False(t, seen[sess.JoinCode], "入場代碼每次開房都要輪換")
		seen[sess.JoinCode] = true

		if i > 0 {
			assert.Greater(t, sess.Version, lastVersion, "重開走版本比對寫回")
		}
		lastVersion = sess.Version
	}

	// 每場比賽始終只有一筆場次
	sess, err := f.repos.Session.FindByMatchID(f.match.ID)
	require.NoError(t, err)
	assert.Equal(t, lastVersion, sess.Version)
}
