package repository

import (
	"time"

	"github.com/lexvia/case-gateway/internal/model"
)

type EventEntity struct {
	ID        int64         `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	TicketID  int64         `db:"ticket_id"  gorm:"column:ticket_id;not null;index"`
	Ticket    *TicketEntity `db:"-"          gorm:"foreignKey:TicketID;references:ID;constraint:OnDelete:CASCADE"`
	Type      string        `db:"type"       gorm:"column:type;not null;index"`
	Payload   []byte        `db:"payload"    gorm:"column:payload"`
	CreatedAt time.Time     `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (EventEntity) TableName() string {
	return "ticket_events"
}

func toEventEntity(m *model.Event) *EventEntity {
	if m == nil {
		return nil
	}
	return &EventEntity{
		ID:        m.ID,
		TicketID:  m.TicketID,
		Type:      string(m.Type),
		Payload:   m.Payload,
		CreatedAt: m.CreatedAt,
	}
}

func toEventModel(e *EventEntity) *model.Event {
	if e == nil {
		return nil
	}
	return &model.Event{
		ID:        e.ID,
		TicketID:  e.TicketID,
		Type:      model.EventType(e.Type),
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}

func toEventModels(entities []*EventEntity) []*model.Event {
	if entities == nil {
		return nil
	}
	models := make([]*model.Event, len(entities))
	for i, e := range entities {
		models[i] = toEventModel(e)
	}
	return models
}
