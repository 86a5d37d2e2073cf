package repository

import (
	"encoding/json"
	"time"

	"github.com/lexvia/case-gateway/internal/model"
)

type MessageEntity struct {
	ID                int64         `db:"id"                  gorm:"primaryKey;autoIncrement;column:id"`
	TicketID          int64         `db:"ticket_id"           gorm:"column:ticket_id;not null;index"`
	Ticket            *TicketEntity `db:"-"                   gorm:"foreignKey:TicketID;references:ID;constraint:OnDelete:CASCADE"`
	Direction         string        `db:"direction"           gorm:"column:direction;not null"`
	FromRole          string        `db:"from_role"           gorm:"column:from_role;not null"`
	Text              string        `db:"text"                gorm:"column:text;not null"`
	Attachments       []byte        `db:"attachments"         gorm:"column:attachments"`
	RawPayload        []byte        `db:"raw_payload"         gorm:"column:raw_payload"`
	ExternalMessageID *string       `db:"external_message_id" gorm:"column:external_message_id;uniqueIndex"`
	CreatedAt         time.Time     `db:"created_at"          gorm:"column:created_at;autoCreateTime"`
}

func (MessageEntity) TableName() string {
	return "ticket_messages"
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	var attachments []byte
	if len(m.Attachments) > 0 {
		attachments, _ = json.Marshal(m.Attachments)
	}
	return &MessageEntity{
		ID:                m.ID,
		TicketID:          m.TicketID,
		Direction:         string(m.Direction),
		FromRole:          string(m.From),
		Text:              m.Text,
		Attachments:       attachments,
		RawPayload:        m.RawPayload,
		ExternalMessageID: m.ExternalMessageID,
		CreatedAt:         m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	var attachments []model.Attachment
	if len(e.Attachments) > 0 {
		_ = json.Unmarshal(e.Attachments, &attachments)
	}
	return &model.Message{
		ID:                e.ID,
		TicketID:          e.TicketID,
		Direction:         model.MessageDirection(e.Direction),
		From:              model.MessageFrom(e.FromRole),
		Text:              e.Text,
		Attachments:       attachments,
		RawPayload:        e.RawPayload,
		ExternalMessageID: e.ExternalMessageID,
		CreatedAt:         e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
