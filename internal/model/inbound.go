package model

import (
	"errors"
	"time"
)

// EventTypeIncoming is the only relay event type the pipeline processes.
// Everything else is acknowledged and skipped.
const EventTypeIncoming = "message.incoming"

// InboundAttachment is a media descriptor as delivered by the relay. URL is a
// temporary relay URL that must be archived before it expires.
type InboundAttachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// InboundEvent is the canonical shape every webhook wire format is normalized
// into before the triage pipeline runs. Adapters in the handler layer produce
// it; the pipeline never sees relay-specific payloads.
type InboundEvent struct {
	Phone       string
	Name        string
	Text        string
	MessageID   string // external message id, idempotency key when present
	Event       string // relay event discriminator, empty means incoming
	Timestamp   time.Time
	Metadata    map[string]any
	Attachments []InboundAttachment
	RawPayload  []byte // original wire body, kept for audit
}

func (e InboundEvent) Validate() error {
	if len(e.Phone) < 5 {
		return errors.New("phone is required")
	}
	if e.Text == "" && len(e.Attachments) == 0 {
		return errors.New("text or attachments required")
	}
	return nil
}

// Incoming reports whether this event is a customer message (vs. a status
// callback or other relay noise).
func (e InboundEvent) Incoming() bool {
	return e.Event == "" || e.Event == EventTypeIncoming
}

// MetaConfidence extracts the optional classifier confidence score.
func (e InboundEvent) MetaConfidence() float64 {
	if e.Metadata == nil {
		return 0
	}
	if v, ok := e.Metadata["confidence"].(float64); ok {
		return v
	}
	return 0
}

// MetaPriorityHint extracts the optional priority hint string.
func (e InboundEvent) MetaPriorityHint() string {
	if e.Metadata == nil {
		return ""
	}
	if v, ok := e.Metadata["priority"].(string); ok {
		return v
	}
	return ""
}
