package repository

import (
	"time"

	"github.com/lexvia/case-gateway/internal/model"
)

type CustomerEntity struct {
	ID          int64      `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Phone       string     `db:"phone"         gorm:"column:phone;not null;uniqueIndex"`
	Name        *string    `db:"name"          gorm:"column:name"`
	Email       *string    `db:"email"         gorm:"column:email"`
	BotPausedAt *time.Time `db:"bot_paused_at" gorm:"column:bot_paused_at"`
	CreatedAt   time.Time  `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		ID:          m.ID,
		Phone:       m.Phone,
		Name:        m.Name,
		Email:       m.Email,
		BotPausedAt: m.BotPausedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:          e.ID,
		Phone:       e.Phone,
		Name:        e.Name,
		Email:       e.Email,
		BotPausedAt: e.BotPausedAt,
		CreatedAt:   e.CreatedAt,
	}
}
