package models

import (
	"gorm.io/gorm"
)

// User 表示系統中的帳號
type User struct {
	gorm.Model          // 內嵌 gorm.Model，提供 ID、CreatedAt、UpdatedAt 和 DeletedAt 字段
	Username   string   `gorm:"uniqueIndex;not null" json:"username"` // 帳號名，必須唯一
	Password   string   `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	Role       UserRole `gorm:"not null" json:"role"`                 // 帳號角色
}

// UserRole 定義帳號角色的類型
type UserRole string

const (
	RoleHost   UserRole = "host"   // 主持人／管理端
	RolePlayer UserRole = "player" // 參賽選手
	RoleGuest  UserRole = "guest"  // 觀賽來賓，只讀
)
