package repository

import (
	"time"

	"github.com/lexvia/case-gateway/internal/model"
)

type TicketEntity struct {
	ID            int64           `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Code          string          `db:"code"            gorm:"column:code;not null;uniqueIndex"`
	CustomerID    int64           `db:"customer_id"     gorm:"column:customer_id;not null;index"`
	Customer      *CustomerEntity `db:"-"               gorm:"foreignKey:CustomerID;references:ID;constraint:OnDelete:CASCADE"`
	Title         string          `db:"title"           gorm:"column:title;not null"`
	Status        string          `db:"status"          gorm:"column:status;not null;index"`
	Priority      string          `db:"priority"        gorm:"column:priority;not null"`
	Category      string          `db:"category"        gorm:"column:category;not null"`
	Channel       string          `db:"channel"         gorm:"column:channel;not null"`
	ContactName   string          `db:"contact_name"    gorm:"column:contact_name"`
	AssignedToID  *int64          `db:"assigned_to_id"  gorm:"column:assigned_to_id;index"`
	AISummary     *string         `db:"ai_summary"      gorm:"column:ai_summary"`
	Resolution    *string         `db:"resolution"      gorm:"column:resolution"`
	ResolvedByAI  bool            `db:"resolved_by_ai"  gorm:"column:resolved_by_ai;not null;default:false"`
	LastMessageAt time.Time       `db:"last_message_at" gorm:"column:last_message_at;not null;index"`
	CreatedAt     time.Time       `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (TicketEntity) TableName() string {
	return "tickets"
}

type AgentEntity struct {
	ID    int64  `db:"id"    gorm:"primaryKey;autoIncrement;column:id"`
	Name  string `db:"name"  gorm:"column:name;not null"`
	Email string `db:"email" gorm:"column:email;not null;uniqueIndex"`
}

func (AgentEntity) TableName() string {
	return "agents"
}

func toTicketEntity(m *model.Ticket) *TicketEntity {
	if m == nil {
		return nil
	}
	return &TicketEntity{
		ID:            m.ID,
		Code:          m.Code,
		CustomerID:    m.CustomerID,
		Title:         m.Title,
		Status:        string(m.Status),
		Priority:      string(m.Priority),
		Category:      string(m.Category),
		Channel:       string(m.Channel),
		ContactName:   m.ContactName,
		AssignedToID:  m.AssignedToID,
		AISummary:     m.AISummary,
		Resolution:    m.Resolution,
		ResolvedByAI:  m.ResolvedByAI,
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
	}
}

func toTicketModel(e *TicketEntity) *model.Ticket {
	if e == nil {
		return nil
	}
	return &model.Ticket{
		ID:            e.ID,
		Code:          e.Code,
		CustomerID:    e.CustomerID,
		Customer:      toCustomerModel(e.Customer),
		Title:         e.Title,
		Status:        model.TicketStatus(e.Status),
		Priority:      model.TicketPriority(e.Priority),
		Category:      model.TicketCategory(e.Category),
		Channel:       model.TicketChannel(e.Channel),
		ContactName:   e.ContactName,
		AssignedToID:  e.AssignedToID,
		AISummary:     e.AISummary,
		Resolution:    e.Resolution,
		ResolvedByAI:  e.ResolvedByAI,
		LastMessageAt: e.LastMessageAt,
		CreatedAt:     e.CreatedAt,
	}
}

func toTicketModels(entities []*TicketEntity) []*model.Ticket {
	if entities == nil {
		return nil
	}
	models := make([]*model.Ticket, len(entities))
	for i, e := range entities {
		models[i] = toTicketModel(e)
	}
	return models
}
