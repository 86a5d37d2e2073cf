package model

import "time"

// EventType classifies a journal entry.
type EventType string

const (
	EventAutoReply     EventType = "AUTO_REPLY"
	EventEscalated     EventType = "ESCALATED"
	EventStatusChanged EventType = "STATUS_CHANGED"
)

// Event is an append-only audit record of a triage decision or lifecycle
// change. Payload carries the decision inputs/outputs as JSON.
type Event struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	Type      EventType `json:"type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

func (Event) TableName() string { return "ticket_events" }
