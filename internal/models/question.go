package models

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// RoundQuestion 表示回合中的一道題目
// 建立後除 TargetPlayerID 與星標旗標外不再變動
type RoundQuestion struct {
	gorm.Model
	MatchRoundID   uint   `gorm:"not null;index" json:"match_round_id"`
	OrderIndex     int    `gorm:"not null" json:"order_index"`
	TargetPlayerID *uint  `json:"target_player_id,omitempty"` // 題目歸屬的選手，共用題為空
	Code           string `json:"code"`                       // 題號編碼，如 "1-03" 表示 1 號座位第 3 題
	PointValue     int    `json:"point_value"`                // ve_dich 題目分值（10/20/30），其他賽制為 0
	StarAllowed    bool   `json:"star_allowed"`               // 是否允許押星（僅 ve_dich）
	Content        string `gorm:"type:text" json:"content"`
	AnswerText     string `gorm:"type:text" json:"answer_text"`
}

// SeatFromCode 從題號編碼解析座位號
// 舊版資料以 "座位號-題序" 的編碼慣例標記個人題歸屬，
// 僅在 TargetPlayerID 未設定時作為後備使用；解析失敗回傳 0
func (q *RoundQuestion) SeatFromCode() int {
	prefix, _, found := strings.Cut(q.Code, "-")
	if !found {
		return 0
	}
	seat, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil || seat < 1 || seat > 4 {
		return 0
	}
	return seat
}

// IsPersonal 判斷是否為個人題（有指定選手或題號編碼含座位前綴）
func (q *RoundQuestion) IsPersonal() bool {
	return q.TargetPlayerID != nil || q.SeatFromCode() != 0
}
