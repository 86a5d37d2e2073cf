package model

import (
	"strings"
	"time"
)

type MessageDirection string

const (
	DirectionInbound      MessageDirection = "INBOUND"
	DirectionOutbound     MessageDirection = "OUTBOUND"
	DirectionInternalNote MessageDirection = "INTERNAL_NOTE"
)

type MessageFrom string

const (
	FromCustomer MessageFrom = "CUSTOMER"
	FromBot      MessageFrom = "BOT"
	FromHuman    MessageFrom = "HUMAN"
)

// AttachmentKind is derived from the attachment mime type.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "IMAGE"
	AttachmentAudio    AttachmentKind = "AUDIO"
	AttachmentVideo    AttachmentKind = "VIDEO"
	AttachmentDocument AttachmentKind = "DOCUMENT"
)

// KindFromMime maps a mime type (or hint) to an attachment kind.
func KindFromMime(mime string) AttachmentKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mime, "audio/"):
		return AttachmentAudio
	case strings.HasPrefix(mime, "video/"):
		return AttachmentVideo
	default:
		return AttachmentDocument
	}
}

// Attachment is a persisted media reference on a message. URL points at
// permanent storage, not the relay's temp URL.
type Attachment struct {
	URL      string         `json:"url"`
	Kind     AttachmentKind `json:"kind"`
	Filename string         `json:"filename,omitempty"`
}

// Message is one entry in a ticket's conversation. Messages are append-only;
// the only deletion path is the grouped escalate/close-by-AI transaction.
type Message struct {
	ID                int64            `json:"id"`
	TicketID          int64            `json:"ticket_id"`
	Direction         MessageDirection `json:"direction"`
	From              MessageFrom      `json:"from"`
	Text              string           `json:"text"`
	Attachments       []Attachment     `json:"attachments,omitempty"`
	RawPayload        []byte           `json:"-"` // audit snapshot of the wire event
	ExternalMessageID *string          `json:"external_message_id"`
	CreatedAt         time.Time        `json:"created_at"`
}

func (Message) TableName() string { return "ticket_messages" }
