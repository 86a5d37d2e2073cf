package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexvia/case-gateway/internal/ai"
	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/internal/mutesync"
	"github.com/lexvia/case-gateway/internal/relay"
	"github.com/lexvia/case-gateway/internal/repository"
	"github.com/lexvia/case-gateway/internal/triage"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/lexvia/case-gateway/pkg/prom"
)

var (
	ErrNotFound          = errors.New("error notfound")
	ErrAlreadySummarized = errors.New("ticket already summarized")
)

const (
	resolutionEscalated  = "Escalado a soporte humano"
	resolutionResolvedAI = "Resuelto automáticamente por IA"
)

type TicketStore interface {
	Get(ctx context.Context, id int64) (*model.Ticket, error)
	List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, int64, error)
	Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error)
	Update(ctx context.Context, id int64, update repository.TicketUpdate) (*model.Ticket, error)
	SetSummary(ctx context.Context, id int64, summary, resolution string, status model.TicketStatus, resolvedByAI bool) error
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]*model.Message, error)
	DeleteByTicket(ctx context.Context, ticketID int64) (int64, error)
}

type EventStore interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]*model.Event, error)
}

type CustomerStore interface {
	UpsertByPhone(ctx context.Context, phone, name string) (*model.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*model.Customer, error)
	Get(ctx context.Context, id int64) (*model.Customer, error)
	SetBotPaused(ctx context.Context, id int64, paused bool) (*model.Customer, error)
}

// TransactionManager groups repository writes into one transaction.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MuteSyncPublisher enqueues relay blacklist mutations for the background
// consumer.
type MuteSyncPublisher interface {
	Enqueue(ctx context.Context, job mutesync.Job) (string, error)
}

// TicketService carries the staff-facing operations: browsing, manual
// creation, replies, and the grouped escalate/close-by-AI transitions.
type TicketService struct {
	ticketRepo   TicketStore
	messageRepo  MessageStore
	eventRepo    EventStore
	customerRepo CustomerStore
	tx           TransactionManager
	sender       MessageSender
	summarizer   ai.Summarizer
	muteSync     MuteSyncPublisher
	countryCode  string
}

func NewTicketService(
	ticketRepo TicketStore,
	messageRepo MessageStore,
	eventRepo EventStore,
	customerRepo CustomerStore,
	tx TransactionManager,
	sender MessageSender,
	summarizer ai.Summarizer,
	muteSync MuteSyncPublisher,
	countryCode string,
) *TicketService {
	return &TicketService{
		ticketRepo:   ticketRepo,
		messageRepo:  messageRepo,
		eventRepo:    eventRepo,
		customerRepo: customerRepo,
		tx:           tx,
		sender:       sender,
		summarizer:   summarizer,
		muteSync:     muteSync,
		countryCode:  countryCode,
	}
}

func (s *TicketService) List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, int64, error) {
	return s.ticketRepo.List(ctx, f)
}

// TicketDetail is a ticket with its full conversation and audit trail.
type TicketDetail struct {
	Ticket   *model.Ticket    `json:"ticket"`
	Messages []*model.Message `json:"messages"`
	Events   []*model.Event   `json:"events"`
}

func (s *TicketService) Get(ctx context.Context, id int64) (*TicketDetail, error) {
	ticket, err := s.ticketRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	messages, err := s.messageRepo.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	return &TicketDetail{Ticket: ticket, Messages: messages, Events: events}, nil
}

// Create opens a ticket on behalf of staff (WEB channel).
func (s *TicketService) Create(ctx context.Context, p model.TicketCreateRequest) (*model.Ticket, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	phone := triage.NormalizePhone(p.CustomerPhone)
	customer, err := s.customerRepo.UpsertByPhone(ctx, phone, p.CustomerName)
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	priority := p.Priority
	if priority == "" {
		priority = model.TicketPriorityNormal
	}
	category := p.Category
	if category == "" {
		category = model.CategoryOther
	}

	now := time.Now()
	ticket, err := s.ticketRepo.Create(ctx, &model.Ticket{
		Code:          triage.GenerateTicketCode(now),
		CustomerID:    customer.ID,
		Title:         p.Title,
		Status:        model.TicketStatusOpen,
		Priority:      priority,
		Category:      category,
		Channel:       model.ChannelWeb,
		ContactName:   p.ContactName,
		LastMessageAt: now,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("ticket created by staff", "ticket_code", ticket.Code)
	return ticket, nil
}

func (s *TicketService) Update(ctx context.Context, id int64, update repository.TicketUpdate) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// Reply sends a staff message to the customer and parks the ticket as
// waiting on them. The relay send happens first: a reply that never reached
// the customer must not be stored as if it had.
func (s *TicketService) Reply(ctx context.Context, ticketID int64, text string) (*model.Message, error) {
	if text == "" {
		return nil, errors.New("text is required")
	}

	detail, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if detail.Ticket.Customer == nil {
		return nil, errors.New("ticket has no customer")
	}

	number := triage.InternationalPhone(detail.Ticket.Customer.Phone, s.countryCode)
	if s.sender != nil {
		if err := s.sender.Send(ctx, number, text, ""); err != nil {
			prom.AddRelayFailure("send")
			return nil, fmt.Errorf("relay send: %w", err)
		}
	}

	msg, err := s.messageRepo.Create(ctx, &model.Message{
		TicketID:  ticketID,
		Direction: model.DirectionOutbound,
		From:      model.FromHuman,
		Text:      text,
	})
	if err != nil {
		return nil, err
	}

	waiting := model.TicketStatusWaitingCustomer
	now := time.Now()
	if _, err := s.ticketRepo.Update(ctx, ticketID, repository.TicketUpdate{Status: &waiting, LastMessageAt: &now}); err != nil {
		logger.Error("failed to set waiting status after reply", "ticket_id", ticketID, "error", err)
	}

	return msg, nil
}

// AddNote appends an internal staff note to the conversation. Notes never go
// through the relay and never change the ticket status.
func (s *TicketService) AddNote(ctx context.Context, ticketID int64, text string) (*model.Message, error) {
	if text == "" {
		return nil, errors.New("text is required")
	}

	if _, err := s.ticketRepo.Get(ctx, ticketID); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	msg, err := s.messageRepo.Create(ctx, &model.Message{
		TicketID:  ticketID,
		Direction: model.DirectionInternalNote,
		From:      model.FromHuman,
		Text:      text,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := s.ticketRepo.Update(ctx, ticketID, repository.TicketUpdate{LastMessageAt: &now}); err != nil {
		logger.Error("failed to bump ticket after note", "ticket_id", ticketID, "error", err)
	}

	return msg, nil
}

// Escalate hands a conversation to a human: it snapshots an AI summary, marks
// the ticket in progress, journals the transition and purges the raw
// conversation, all in one transaction. A ticket that already carries a
// summary was escalated or closed before and is left untouched.
func (s *TicketService) Escalate(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	return s.summarizeAndClose(ctx, ticketID, model.TicketStatusInProgress, resolutionEscalated, false, model.EventEscalated)
}

// CloseByAI resolves a conversation the bot handled end to end. Same grouped
// transaction as Escalate with a resolved outcome.
func (s *TicketService) CloseByAI(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	return s.summarizeAndClose(ctx, ticketID, model.TicketStatusResolved, resolutionResolvedAI, true, model.EventStatusChanged)
}

func (s *TicketService) summarizeAndClose(ctx context.Context, ticketID int64, status model.TicketStatus, resolution string, resolvedByAI bool, eventType model.EventType) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if ticket.AISummary != nil && *ticket.AISummary != "" {
		return nil, ErrAlreadySummarized
	}

	messages, err := s.messageRepo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	// The summarizer call stays outside the transaction; it can take seconds.
	summary := ai.SummarizeOrFallback(ctx, s.summarizer, ticket, messages)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ticketRepo.SetSummary(ctx, ticketID, summary, resolution, status, resolvedByAI); err != nil {
			return err
		}
		if _, err := s.eventRepo.Create(ctx, &model.Event{
			TicketID: ticketID,
			Type:     eventType,
			Payload:  []byte(fmt.Sprintf(`{"status":%q,"resolution":%q}`, status, resolution)),
		}); err != nil {
			return err
		}
		if _, err := s.messageRepo.DeleteByTicket(ctx, ticketID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summarize and close: %w", err)
	}

	logger.Info("ticket summarized and closed",
		"ticket_code", ticket.Code,
		"status", string(status),
		"resolved_by_ai", resolvedByAI)
	prom.AddTicketAction("summarized")

	return s.ticketRepo.Get(ctx, ticketID)
}

// CheckMute reports whether the bot is paused for a phone number. Unknown
// numbers are not muted.
func (s *TicketService) CheckMute(ctx context.Context, phone string) (bool, error) {
	customer, err := s.customerRepo.FindByPhone(ctx, triage.NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return false, nil
		}
		return false, err
	}
	return customer.BotPaused(), nil
}

// SetBotPaused flips the customer's do-not-auto-reply flag and enqueues the
// relay blacklist sync. The DB flag is authoritative immediately; the relay
// catches up asynchronously.
func (s *TicketService) SetBotPaused(ctx context.Context, customerID int64, paused bool) (*model.Customer, error) {
	customer, err := s.customerRepo.SetBotPaused(ctx, customerID, paused)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.muteSync != nil {
		intent := relay.BlacklistRemove
		if paused {
			intent = relay.BlacklistAdd
		}
		job := mutesync.Job{
			CustomerID: customer.ID,
			Phone:      triage.InternationalPhone(customer.Phone, s.countryCode),
			Intent:     intent,
		}
		if _, err := s.muteSync.Enqueue(ctx, job); err != nil {
			logger.Error("failed to enqueue mute-sync job",
				"customer_id", customer.ID,
				"error", err)
			// The DB flag is set; the pipeline already respects it.
		}
	}

	return customer, nil
}
