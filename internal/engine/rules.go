package engine

import (
	"sort"
	"time"

	"olympia_live/internal/models"
)

// 賽制預設參數，可由 MatchRound.Config 覆寫
const (
	defaultCorrectPoints = 10
	defaultVeDichTier    = 10
)

var defaultSpeedTiers = []int{40, 30, 20, 10}

// DecisionContext 是一次裁決所需的全部輸入
type DecisionContext struct {
	RoundType models.RoundType
	Config    models.RoundConfig
	Question  *models.RoundQuestion
	Answer    *models.Answer // 既有作答，允許為空（逾時裁決可無作答）
	StarArmed bool           // 僅 ve_dich 有意義
}

// Outcome 是裁決的計算結果
type Outcome struct {
	PointsDelta int
	Correct     bool
	StarOutcome models.StarOutcome // 未押星時為空
	Deferred    bool               // true 表示分數延後到排名結算時發放（tang_toc）
}

// formatRules 將四種賽制的差異收斂在單一分派點
// 新增賽制時在 rulesByType 註冊即可，其他元件不需分支
type formatRules interface {
	Decide(ctx DecisionContext, d models.Decision) (Outcome, error)
}

var rulesByType = map[models.RoundType]formatRules{
	models.RoundKhoiDong: khoiDongRules{},
	models.RoundVCNV:     vcnvRules{},
	models.RoundTangToc:  tangTocRules{},
	models.RoundVeDich:   veDichRules{},
}

// ResolveDecision 計算一次主持人裁決的得分變化
// 同一 (題目, 選手) 重複裁決回傳 ErrAlreadyJudged，不會重複計分
func ResolveDecision(ctx DecisionContext, d models.Decision) (Outcome, error) {
	if !d.Valid() {
		return Outcome{}, ErrInvalidState
	}
	if ctx.Answer != nil && ctx.Answer.Judged() {
		return Outcome{}, ErrAlreadyJudged
	}
	rules, ok := rulesByType[ctx.RoundType]
	if !ok {
		return Outcome{}, ErrRoundNotConfigured
	}
	return rules.Decide(ctx, d)
}

// khoiDongRules 啟動回合：答對固定加分，答錯與逾時皆不計分
type khoiDongRules struct{}

func (khoiDongRules) Decide(ctx DecisionContext, d models.Decision) (Outcome, error) {
	points := ctx.Config.CorrectPoints
	if points == 0 {
		points = defaultCorrectPoints
	}
	if d == models.DecisionCorrect {
		return Outcome{PointsDelta: points, Correct: true}, nil
	}
	return Outcome{}, nil
}

// vcnvRules 障礙回合：各座位獨立裁決，計分方式與啟動回合相同
type vcnvRules struct{}

func (vcnvRules) Decide(ctx DecisionContext, d models.Decision) (Outcome, error) {
	points := ctx.Config.CorrectPoints
	if points == 0 {
		points = defaultCorrectPoints
	}
	if d == models.DecisionCorrect {
		return Outcome{PointsDelta: points, Correct: true}, nil
	}
	return Outcome{}, nil
}

// tangTocRules 加速回合：裁決只記錄對錯，分數待全題排名後發放
type tangTocRules struct{}

func (tangTocRules) Decide(_ DecisionContext, d models.Decision) (Outcome, error) {
	return Outcome{Correct: d == models.DecisionCorrect, Deferred: true}, nil
}

// veDichRules 衝刺回合：分值取自題目本身，押星答對加倍、答錯倒扣
type veDichRules struct{}

func (veDichRules) Decide(ctx DecisionContext, d models.Decision) (Outcome, error) {
	tier := defaultVeDichTier
	if ctx.Question != nil && ctx.Question.PointValue > 0 {
		tier = ctx.Question.PointValue
	}

	if d == models.DecisionCorrect {
		if ctx.StarArmed {
			return Outcome{PointsDelta: tier * 2, Correct: true, StarOutcome: models.StarOutcomeDoubled}, nil
		}
		return Outcome{PointsDelta: tier, Correct: true}, nil
	}

	// 答錯與逾時同樣觸發押星倒扣，但裁決種類保留原值供統計
	if ctx.StarArmed {
		return Outcome{PointsDelta: -tier, StarOutcome: models.StarOutcomeLost}, nil
	}
	return Outcome{}, nil
}

// ResolveActivePlayer 決定當前題目輪到誰作答
// 回傳 nil 表示開放多座位作答（vcnv、tang_toc）或搶答尚未鎖定
func ResolveActivePlayer(roundType models.RoundType, q *models.RoundQuestion, buzzerWinner *uint, seatMap map[int]uint) (*uint, error) {
	switch roundType {
	case models.RoundKhoiDong:
		if q.TargetPlayerID != nil {
			return q.TargetPlayerID, nil
		}
		// 後備：舊編碼慣例由題號前綴推座位
		if seat := q.SeatFromCode(); seat != 0 {
			if playerID, ok := seatMap[seat]; ok {
				return &playerID, nil
			}
			return nil, ErrNotFound
		}
		// 共用題由搶答仲裁決定
		return buzzerWinner, nil
	case models.RoundVCNV, models.RoundTangToc:
		return nil, nil
	case models.RoundVeDich:
		if q.TargetPlayerID == nil {
			return nil, ErrRoundNotConfigured
		}
		return q.TargetPlayerID, nil
	}
	return nil, ErrRoundNotConfigured
}

// RankedAward 是加速回合排名結算後單筆作答的配分
type RankedAward struct {
	AnswerID uint
	PlayerID uint
	Rank     int // 1 起算，僅答對者入榜
	Points   int
}

// RankSpeedAnswers 對加速回合的作答做全域排名：
// 只有答對者入榜，依作答耗時升冪排序，平手以提交先後再以流水號決勝，
// 名次對應配分層級，超出層級數的名次不得分。結果與請求到達伺服器的順序無關
func RankSpeedAnswers(answers []models.Answer, tiers []int) []RankedAward {
	if len(tiers) == 0 {
		tiers = defaultSpeedTiers
	}

	correct := make([]models.Answer, 0, len(answers))
	for _, a := range answers {
		if a.IsCorrect != nil && *a.IsCorrect {
			correct = append(correct, a)
		}
	}

	sort.SliceStable(correct, func(i, j int) bool {
		if correct[i].ResponseTimeMs != correct[j].ResponseTimeMs {
			return correct[i].ResponseTimeMs < correct[j].ResponseTimeMs
		}
		if !correct[i].SubmittedAt.Equal(correct[j].SubmittedAt) {
			return correct[i].SubmittedAt.Before(correct[j].SubmittedAt)
		}
		return correct[i].ID < correct[j].ID
	})

	awards := make([]RankedAward, 0, len(correct))
	for i, a := range correct {
		points := 0
		if i < len(tiers) {
			points = tiers[i]
		}
		awards = append(awards, RankedAward{
			AnswerID: a.ID,
			PlayerID: a.PlayerID,
			Rank:     i + 1,
			Points:   points,
		})
	}
	return awards
}

// TimerDuration 回傳題目的預設倒數時長
// 回合設定有指定秒數時優先採用
func TimerDuration(roundType models.RoundType, q *models.RoundQuestion, cfg models.RoundConfig) time.Duration {
	if cfg.TimerSeconds > 0 {
		return time.Duration(cfg.TimerSeconds) * time.Second
	}
	switch roundType {
	case models.RoundKhoiDong:
		return 5 * time.Second
	case models.RoundVCNV:
		return 15 * time.Second
	case models.RoundTangToc:
		return 30 * time.Second
	case models.RoundVeDich:
		if q != nil {
			switch q.PointValue {
			case 20:
				return 15 * time.Second
			case 30:
				return 20 * time.Second
			}
		}
		return 10 * time.Second
	}
	return 10 * time.Second
}
