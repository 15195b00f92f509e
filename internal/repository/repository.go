package repository

import (
	"gorm.io/gorm"
)

// Repositories 彙整所有資料存取介面
// 透過 Transaction 可取得綁定同一交易的複本，保證單一指令的寫入原子性
type Repositories struct {
	db *gorm.DB

	User    UserRepository
	Match   MatchRepository
	Session SessionRepository
	Answer  AnswerRepository
	Buzzer  BuzzerRepository
	Event   EventRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:      db,
		User:    NewUserRepository(db),
		Match:   NewMatchRepository(db),
		Session: NewSessionRepository(db),
		Answer:  NewAnswerRepository(db),
		Buzzer:  NewBuzzerRepository(db),
		Event:   NewEventRepository(db),
	}
}

// Transaction 在單一資料庫交易內執行 fn
// fn 收到的 Repositories 綁定該交易，fn 回傳錯誤即整筆回滾
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
