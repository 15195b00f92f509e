package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// MatchRound 表示比賽中的一個回合（四種固定賽制之一）
type MatchRound struct {
	gorm.Model
	MatchID    uint      `gorm:"not null;index" json:"match_id"`
	RoundType  RoundType `gorm:"not null" json:"round_type"`
	OrderIndex int       `gorm:"not null" json:"order_index"` // 出場順序
	Config     string    `gorm:"type:jsonb" json:"config"`    // 賽制專屬參數，JSON 格式
}

// RoundType 定義回合賽制的類型
type RoundType string

const (
	RoundKhoiDong RoundType = "khoi_dong" // 啟動：個人題＋搶答題
	RoundVCNV     RoundType = "vcnv"      // 障礙：各座位獨立作答
	RoundTangToc  RoundType = "tang_toc"  // 加速：依答題速度排名計分
	RoundVeDich   RoundType = "ve_dich"   // 衝刺：指定選手答題，可押星
)

// Valid 檢查是否為四種已知賽制之一
func (t RoundType) Valid() bool {
	switch t {
	case RoundKhoiDong, RoundVCNV, RoundTangToc, RoundVeDich:
		return true
	}
	return false
}

// RoundConfig 是 MatchRound.Config 解析後的參數
// 欄位缺省時由規則引擎套用賽制預設值
type RoundConfig struct {
	CorrectPoints int   `json:"correct_points,omitempty"` // khoi_dong/vcnv 答對得分
	SpeedTiers    []int `json:"speed_tiers,omitempty"`    // tang_toc 名次配分
	TimerSeconds  int   `json:"timer_seconds,omitempty"`  // 預設倒數秒數
}

// ParseConfig 解析回合參數，空字串回傳零值設定
func (r *MatchRound) ParseConfig() (RoundConfig, error) {
	var cfg RoundConfig
	if r.Config == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(r.Config), &cfg); err != nil {
		return RoundConfig{}, err
	}
	return cfg, nil
}
