package model

import "time"

// Customer is a person (or company) identified by their WhatsApp phone
// number. Phone is stored digits-only and is globally unique.
type Customer struct {
	ID          int64      `json:"id"`
	Phone       string     `json:"phone"`
	Name        *string    `json:"name"`
	Email       *string    `json:"email"`
	BotPausedAt *time.Time `json:"bot_paused_at"` // non-nil means do-not-auto-reply
	CreatedAt   time.Time  `json:"created_at"`
}

func (Customer) TableName() string { return "customers" }

// BotPaused reports whether automated replies are muted for this customer.
func (c *Customer) BotPaused() bool {
	return c != nil && c.BotPausedAt != nil
}
