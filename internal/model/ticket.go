package model

import (
	"errors"
	"time"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingCustomer TicketStatus = "WAITING_CUSTOMER"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// ActiveStatuses are the states in which a ticket can still absorb new
// inbound messages within the rolling window.
func ActiveStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingCustomer}
}

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketCategory is a free-form label. The heuristic classifier produces the
// support-desk set; staff assign the legal-practice set from the case forms.
type TicketCategory string

const (
	CategoryBilling     TicketCategory = "BILLING"
	CategoryTechSupport TicketCategory = "TECH_SUPPORT"
	CategorySales       TicketCategory = "SALES"
	CategoryOther       TicketCategory = "OTHER"

	CategoryLaboral        TicketCategory = "LABORAL"
	CategoryCivil          TicketCategory = "CIVIL"
	CategoryComercial      TicketCategory = "COMERCIAL"
	CategoryPenal          TicketCategory = "PENAL"
	CategoryFamilia        TicketCategory = "FAMILIA"
	CategoryAdministrativo TicketCategory = "ADMINISTRATIVO"
	CategoryTributario     TicketCategory = "TRIBUTARIO"
	CategoryPrevisional    TicketCategory = "PREVISIONAL"
)

type TicketChannel string

const (
	ChannelWhatsApp TicketChannel = "WHATSAPP"
	ChannelEmail    TicketChannel = "EMAIL"
	ChannelWeb      TicketChannel = "WEB"
)

// Ticket is one case/conversation thread owned by a single customer.
type Ticket struct {
	ID            int64          `json:"id"`
	Code          string         `json:"code"`
	CustomerID    int64          `json:"customer_id"`
	Customer      *Customer      `json:"customer,omitempty"`
	Title         string         `json:"title"`
	Status        TicketStatus   `json:"status"`
	Priority      TicketPriority `json:"priority"`
	Category      TicketCategory `json:"category"`
	Channel       TicketChannel  `json:"channel"`
	ContactName   string         `json:"contact_name"`
	AssignedToID  *int64         `json:"assigned_to_id"`
	AISummary     *string        `json:"ai_summary"`
	Resolution    *string        `json:"resolution"`
	ResolvedByAI  bool           `json:"resolved_by_ai"`
	LastMessageAt time.Time      `json:"last_message_at"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (Ticket) TableName() string { return "tickets" }

// TriageUpdate is the single post-classification mutation applied to a
// ticket after each inbound message.
type TriageUpdate struct {
	Priority  TicketPriority
	Category  TicketCategory
	SetStatus *TicketStatus // nil leaves status untouched
}

// TicketCreateRequest is the staff-facing create input (WEB channel).
type TicketCreateRequest struct {
	Title         string
	CustomerPhone string
	CustomerName  string
	ContactName   string
	Priority      TicketPriority
	Category      TicketCategory
}

func (p TicketCreateRequest) Validate() error {
	if len(p.Title) < 3 {
		return errors.New("title is required")
	}
	if len(p.CustomerPhone) < 5 {
		return errors.New("customer_phone is required")
	}
	return nil
}

// TicketFilter controls List queries.
type TicketFilter struct {
	Status     *TicketStatus
	Priority   *TicketPriority
	CustomerID *int64
	Query      *string // matches code, title or customer phone
	Limit      int     // default 50
	Offset     int
}

// Agent is a staff member tickets can be assigned to. Account management and
// login live outside this service.
type Agent struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (Agent) TableName() string { return "agents" }
