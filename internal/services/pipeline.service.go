package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/internal/repository"
	"github.com/lexvia/case-gateway/internal/triage"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/lexvia/case-gateway/pkg/prom"
)

var (
	ErrInvalidEvent = errors.New("invalid inbound event")
)

type CustomerRepository interface {
	UpsertByPhone(ctx context.Context, phone, name string) (*model.Customer, error)
	Get(ctx context.Context, id int64) (*model.Customer, error)
}

type TicketRepository interface {
	FindActive(ctx context.Context, customerID int64, now time.Time, window time.Duration) (*model.Ticket, error)
	Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error)
	Get(ctx context.Context, id int64) (*model.Ticket, error)
	ApplyTriageUpdate(ctx context.Context, id int64, update model.TriageUpdate, now time.Time) error
}

type MessageRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*model.Message, error)
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	CountByTicket(ctx context.Context, ticketID int64) (int64, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
}

// MessageSender is the outbound surface of the relay client.
type MessageSender interface {
	Send(ctx context.Context, number, text, mediaURL string) error
}

// AttachmentArchiver moves relay-hosted media into permanent storage.
type AttachmentArchiver interface {
	Archive(ctx context.Context, attachments []model.InboundAttachment) []model.Attachment
}

// PipelineOptions are the triage knobs, copied from config at wiring time.
type PipelineOptions struct {
	DefaultCountryCode string
	ActiveWindow       time.Duration
	EscalationNotice   string
}

// TriageResult is what one inbound event produced. Handlers serialize it
// directly into the webhook response.
type TriageResult struct {
	Ok         bool              `json:"ok"`
	Skipped    bool              `json:"skipped,omitempty"`
	SkipReason string            `json:"skip_reason,omitempty"`
	Idempotent bool              `json:"idempotent,omitempty"`
	Created    bool              `json:"created,omitempty"`
	TicketID   int64             `json:"ticket_id,omitempty"`
	TicketCode string            `json:"ticket_code,omitempty"`
	Escalated  bool              `json:"escalated,omitempty"`
	Action     triage.ActionPlan `json:"action"`
}

// PipelineService runs the inbound triage pipeline: dedup, customer upsert,
// ticket find-or-create, classification, escalation policy, persistence and
// the optional outbound reply. Storage failures abort the pipeline so the
// relay retries the event; outbound send failures never do.
type PipelineService struct {
	customerRepo CustomerRepository
	ticketRepo   TicketRepository
	messageRepo  MessageRepository
	eventRepo    EventRepository
	sender       MessageSender
	archiver     AttachmentArchiver
	opts         PipelineOptions
}

func NewPipelineService(
	customerRepo CustomerRepository,
	ticketRepo TicketRepository,
	messageRepo MessageRepository,
	eventRepo EventRepository,
	sender MessageSender,
	archiver AttachmentArchiver,
	opts PipelineOptions,
) *PipelineService {
	if opts.ActiveWindow <= 0 {
		opts.ActiveWindow = 48 * time.Hour
	}
	return &PipelineService{
		customerRepo: customerRepo,
		ticketRepo:   ticketRepo,
		messageRepo:  messageRepo,
		eventRepo:    eventRepo,
		sender:       sender,
		archiver:     archiver,
		opts:         opts,
	}
}

func (s *PipelineService) Process(ctx context.Context, event model.InboundEvent) (*TriageResult, error) {
	start := time.Now()
	defer func() {
		prom.AddWebhookDuration(time.Since(start).Seconds())
	}()

	if !event.Incoming() {
		prom.AddWebhookProcessed("skipped")
		return &TriageResult{Ok: true, Skipped: true, SkipReason: "event:" + event.Event}, nil
	}

	if err := event.Validate(); err != nil {
		prom.AddWebhookProcessed("rejected")
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	// Attachment-only messages still need a text body for titles and search.
	if event.Text == "" {
		event.Text = "[adjunto]"
	}

	phone := triage.NormalizePhone(event.Phone)

	// Replays of an already-stored message short-circuit before any write.
	if event.MessageID != "" {
		existing, err := s.messageRepo.FindByExternalID(ctx, event.MessageID)
		if err == nil {
			ticket, terr := s.ticketRepo.Get(ctx, existing.TicketID)
			if terr != nil {
				return nil, fmt.Errorf("load ticket for duplicate: %w", terr)
			}
			logger.Info("duplicate inbound message, skipping",
				"external_message_id", event.MessageID,
				"ticket_code", ticket.Code)
			prom.AddWebhookProcessed("duplicate")
			return &TriageResult{
				Ok:         true,
				Idempotent: true,
				TicketID:   ticket.ID,
				TicketCode: ticket.Code,
				Action:     triage.NeutralPlan(),
			}, nil
		}
		if !errors.Is(err, repository.ErrMessageNotFound) {
			return nil, fmt.Errorf("dedup lookup: %w", err)
		}
	}

	customer, err := s.customerRepo.UpsertByPhone(ctx, phone, event.Name)
	if err != nil {
		prom.AddWebhookProcessed("failed")
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	now := time.Now()
	ticket, err := s.ticketRepo.FindActive(ctx, customer.ID, now, s.opts.ActiveWindow)
	if err != nil {
		prom.AddWebhookProcessed("failed")
		return nil, fmt.Errorf("find active ticket: %w", err)
	}

	var previousMessages int64
	current := triage.Classification{
		Priority: model.TicketPriorityNormal,
		Category: triage.InferCategory(event.Text),
	}
	if ticket != nil {
		current = triage.Classification{Priority: ticket.Priority, Category: ticket.Category}
		previousMessages, err = s.messageRepo.CountByTicket(ctx, ticket.ID)
		if err != nil {
			prom.AddWebhookProcessed("failed")
			return nil, fmt.Errorf("count messages: %w", err)
		}
	}

	hints := triage.HintsFrom(event)
	classification := triage.Classify(event.Text, current, hints)
	plan := triage.Decide(event.Text, classification.Priority, hints, previousMessages)

	created := false
	if ticket == nil {
		ticket, err = s.ticketRepo.Create(ctx, &model.Ticket{
			Code:          triage.GenerateTicketCode(now),
			CustomerID:    customer.ID,
			Title:         triage.TitleFromText(event.Text),
			Status:        model.TicketStatusOpen,
			Priority:      classification.Priority,
			Category:      classification.Category,
			Channel:       model.ChannelWhatsApp,
			ContactName:   event.Name,
			LastMessageAt: now,
		})
		if err != nil {
			prom.AddWebhookProcessed("failed")
			return nil, fmt.Errorf("create ticket: %w", err)
		}
		created = true
	}

	var attachments []model.Attachment
	if s.archiver != nil && len(event.Attachments) > 0 {
		attachments = s.archiver.Archive(ctx, event.Attachments)
	}

	// The inbound message is stored before the ticket is touched: a failed
	// message write must not leave a mutated ticket with no record behind it.
	inbound := &model.Message{
		TicketID:    ticket.ID,
		Direction:   model.DirectionInbound,
		From:        model.FromCustomer,
		Text:        event.Text,
		Attachments: attachments,
		RawPayload:  event.RawPayload,
	}
	if event.MessageID != "" {
		externalID := event.MessageID
		inbound.ExternalMessageID = &externalID
	}
	if _, err := s.messageRepo.Create(ctx, inbound); err != nil {
		prom.AddWebhookProcessed("failed")
		return nil, fmt.Errorf("persist inbound message: %w", err)
	}

	update := model.TriageUpdate{
		Priority:  classification.Priority,
		Category:  classification.Category,
		SetStatus: plan.SetStatus,
	}
	if err := s.ticketRepo.ApplyTriageUpdate(ctx, ticket.ID, update, now); err != nil {
		prom.AddWebhookProcessed("failed")
		return nil, fmt.Errorf("apply triage update: %w", err)
	}

	if err := s.recordPlanEvent(ctx, ticket, plan, classification, previousMessages); err != nil {
		prom.AddWebhookProcessed("failed")
		return nil, err
	}

	s.deliverPlan(ctx, customer, ticket, phone, plan)

	result := &TriageResult{
		Ok:         true,
		Created:    created,
		TicketID:   ticket.ID,
		TicketCode: ticket.Code,
		Escalated:  plan.Kind == triage.ActionEscalate,
		Action:     plan,
	}

	logger.Info("inbound event processed",
		"ticket_code", ticket.Code,
		"created", created,
		"priority", string(classification.Priority),
		"category", string(classification.Category),
		"action", string(plan.Kind))

	if created {
		prom.AddWebhookProcessed("created")
	} else {
		prom.AddWebhookProcessed("attached")
	}

	return result, nil
}

// recordPlanEvent journals exactly one row per processed inbound event:
// ESCALATED when a human must take over, AUTO_REPLY otherwise (a neutral plan
// is an auto-reply decision that chose to stay silent).
func (s *PipelineService) recordPlanEvent(ctx context.Context, ticket *model.Ticket, plan triage.ActionPlan, classification triage.Classification, previousMessages int64) error {
	eventType := model.EventAutoReply
	if plan.Kind == triage.ActionEscalate {
		eventType = model.EventEscalated
	}

	payload, _ := json.Marshal(map[string]any{
		"priority":          string(classification.Priority),
		"previous_messages": previousMessages,
		"action_plan":       plan,
	})
	if _, err := s.eventRepo.Create(ctx, &model.Event{
		TicketID: ticket.ID,
		Type:     eventType,
		Payload:  payload,
	}); err != nil {
		return fmt.Errorf("persist triage event: %w", err)
	}

	switch plan.Kind {
	case triage.ActionEscalate:
		prom.AddTicketAction("escalated")
	case triage.ActionAutoReply:
		prom.AddTicketAction("auto_reply")
	default:
		prom.AddTicketAction("neutral")
	}
	return nil
}

// deliverPlan performs the outbound side effects of the plan. Delivery is
// best effort: the ticket state is already committed, a relay hiccup must not
// make the relay redeliver the inbound event.
func (s *PipelineService) deliverPlan(ctx context.Context, customer *model.Customer, ticket *model.Ticket, phone string, plan triage.ActionPlan) {
	if s.sender == nil {
		return
	}

	number := triage.InternationalPhone(phone, s.opts.DefaultCountryCode)

	switch plan.Kind {
	case triage.ActionAutoReply:
		if customer.BotPaused() {
			logger.Info("bot paused for customer, suppressing auto-reply",
				"ticket_code", ticket.Code)
			return
		}
		s.sendOutbound(ctx, ticket, number, plan.ReplyText())
	case triage.ActionEscalate:
		if s.opts.EscalationNotice == "" {
			return
		}
		s.sendOutbound(ctx, ticket, number, s.opts.EscalationNotice)
	}
}

func (s *PipelineService) sendOutbound(ctx context.Context, ticket *model.Ticket, number, text string) {
	if err := s.sender.Send(ctx, number, text, ""); err != nil {
		logger.Warn("outbound send failed",
			"ticket_code", ticket.Code,
			"error", err)
		prom.AddRelayFailure("send")
		return
	}

	if _, err := s.messageRepo.Create(ctx, &model.Message{
		TicketID:  ticket.ID,
		Direction: model.DirectionOutbound,
		From:      model.FromBot,
		Text:      text,
	}); err != nil {
		logger.Error("failed to persist outbound message",
			"ticket_code", ticket.Code,
			"error", err)
	}
}
