package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/internal/mutesync"
	"github.com/lexvia/case-gateway/internal/relay"
	"github.com/lexvia/case-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The staff-service methods extend the pipeline fakes with the store
// surfaces they need.

func (f *fakeTicketRepo) List(_ context.Context, filter model.TicketFilter) ([]*model.Ticket, int64, error) {
	var out []*model.Ticket
	for _, t := range f.tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTicketRepo) Update(_ context.Context, id int64, update repository.TicketUpdate) (*model.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.Priority != nil {
		t.Priority = *update.Priority
	}
	if update.Category != nil {
		t.Category = *update.Category
	}
	if update.ContactName != nil {
		t.ContactName = *update.ContactName
	}
	if update.AssignedToID != nil {
		t.AssignedToID = update.AssignedToID
	}
	if update.LastMessageAt != nil {
		t.LastMessageAt = *update.LastMessageAt
	}
	return t, nil
}

func (f *fakeTicketRepo) SetSummary(_ context.Context, id int64, summary, resolution string, status model.TicketStatus, resolvedByAI bool) error {
	t, ok := f.tickets[id]
	if !ok {
		return repository.ErrTicketNotFound
	}
	t.AISummary = &summary
	t.Resolution = &resolution
	t.Status = status
	t.ResolvedByAI = resolvedByAI
	return nil
}

func (f *fakeMessageRepo) ListByTicket(_ context.Context, ticketID int64) ([]*model.Message, error) {
	var out []*model.Message
	for _, m := range f.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) DeleteByTicket(_ context.Context, ticketID int64) (int64, error) {
	var kept []*model.Message
	var deleted int64
	for _, m := range f.messages {
		if m.TicketID == ticketID {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	return deleted, nil
}

func (f *fakeEventRepo) ListByTicket(_ context.Context, ticketID int64) ([]*model.Event, error) {
	var out []*model.Event
	for _, e := range f.events {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCustomerRepo) FindByPhone(_ context.Context, phone string) (*model.Customer, error) {
	if c, ok := f.byPhone[phone]; ok {
		return c, nil
	}
	return nil, repository.ErrCustomerNotFound
}

func (f *fakeCustomerRepo) SetBotPaused(_ context.Context, id int64, paused bool) (*model.Customer, error) {
	for _, c := range f.byPhone {
		if c.ID == id {
			if paused {
				now := time.Now()
				c.BotPausedAt = &now
			} else {
				c.BotPausedAt = nil
			}
			return c, nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

type fakeTx struct {
	err error
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type fakeMuteSync struct {
	jobs []mutesync.Job
	err  error
}

func (f *fakeMuteSync) Enqueue(_ context.Context, job mutesync.Job) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return "1-0", nil
}

type ticketFixture struct {
	customers *fakeCustomerRepo
	tickets   *fakeTicketRepo
	messages  *fakeMessageRepo
	events    *fakeEventRepo
	sender    *fakeSender
	tx        *fakeTx
	muteSync  *fakeMuteSync
	svc       *TicketService
}

func newTicketFixture() *ticketFixture {
	f := &ticketFixture{
		customers: newFakeCustomerRepo(),
		tickets:   newFakeTicketRepo(),
		messages:  &fakeMessageRepo{},
		events:    &fakeEventRepo{},
		sender:    &fakeSender{},
		tx:        &fakeTx{},
		muteSync:  &fakeMuteSync{},
	}
	f.svc = NewTicketService(f.tickets, f.messages, f.events, f.customers, f.tx, f.sender, nil, f.muteSync, "54")
	return f
}

func (f *ticketFixture) seedTicket(t *testing.T, texts ...string) *model.Ticket {
	t.Helper()
	ctx := context.Background()
	customer, err := f.customers.UpsertByPhone(ctx, "5491112345678", "Juan")
	require.NoError(t, err)

	ticket, err := f.tickets.Create(ctx, &model.Ticket{
		Code:          "RCL-2025-0130-000001",
		CustomerID:    customer.ID,
		Title:         "Consulta",
		Status:        model.TicketStatusOpen,
		Priority:      model.TicketPriorityNormal,
		Category:      model.CategoryTechSupport,
		Channel:       model.ChannelWhatsApp,
		LastMessageAt: time.Now(),
	})
	require.NoError(t, err)
	ticket.Customer = customer
	f.tickets.tickets[ticket.ID].Customer = customer

	for _, text := range texts {
		_, err := f.messages.Create(ctx, &model.Message{
			TicketID:  ticket.ID,
			Direction: model.DirectionInbound,
			From:      model.FromCustomer,
			Text:      text,
		})
		require.NoError(t, err)
	}
	return f.tickets.tickets[ticket.ID]
}

func TestTicketService_Create(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()

	t.Run("creates a web ticket with defaults", func(t *testing.T) {
		ticket, err := f.svc.Create(ctx, model.TicketCreateRequest{
			Title:         "Reclamo laboral",
			CustomerPhone: "+54 9 11 9999-0000",
			CustomerName:  "Empresa SA",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ChannelWeb, ticket.Channel)
		assert.Equal(t, model.TicketPriorityNormal, ticket.Priority)
		assert.Equal(t, model.CategoryOther, ticket.Category)
		assert.Regexp(t, `^RCL-`, ticket.Code)

		_, err = f.customers.FindByPhone(ctx, "5491199990000")
		assert.NoError(t, err)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		_, err := f.svc.Create(ctx, model.TicketCreateRequest{CustomerPhone: "5491112345678"})
		assert.Error(t, err)
	})
}

func TestTicketService_Reply(t *testing.T) {
	t.Run("sends then persists and parks waiting", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t, "hola")

		msg, err := f.svc.Reply(context.Background(), ticket.ID, "Gracias, lo revisamos")
		require.NoError(t, err)

		assert.Equal(t, model.FromHuman, msg.From)
		require.Len(t, f.sender.sent, 1)
		assert.Contains(t, f.sender.sent[0], "5491112345678|")
		assert.Equal(t, model.TicketStatusWaitingCustomer, f.tickets.tickets[ticket.ID].Status)
	})

	t.Run("failed send stores nothing", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t, "hola")
		f.sender.err = errors.New("relay down")

		_, err := f.svc.Reply(context.Background(), ticket.ID, "Gracias")
		assert.Error(t, err)
		assert.Len(t, f.messages.outbound(), 0)
		assert.Equal(t, model.TicketStatusOpen, f.tickets.tickets[ticket.ID].Status)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t)

		_, err := f.svc.Reply(context.Background(), ticket.ID, "")
		assert.Error(t, err)
	})
}

func TestTicketService_AddNote(t *testing.T) {
	t.Run("stores an internal note without sending", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t, "hola")
		before := f.tickets.tickets[ticket.ID].LastMessageAt

		msg, err := f.svc.AddNote(context.Background(), ticket.ID, "cliente llamó por teléfono")
		require.NoError(t, err)

		assert.Equal(t, model.DirectionInternalNote, msg.Direction)
		assert.Equal(t, model.FromHuman, msg.From)
		assert.Empty(t, f.sender.sent)
		assert.Equal(t, model.TicketStatusOpen, f.tickets.tickets[ticket.ID].Status)
		assert.False(t, f.tickets.tickets[ticket.ID].LastMessageAt.Before(before))
	})

	t.Run("unknown ticket", func(t *testing.T) {
		f := newTicketFixture()

		_, err := f.svc.AddNote(context.Background(), 99, "nota")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t)

		_, err := f.svc.AddNote(context.Background(), ticket.ID, "")
		assert.Error(t, err)
	})
}

func TestTicketService_Escalate(t *testing.T) {
	t.Run("summarizes, journals and purges the conversation", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t, "hola", "tengo un problema grave", "necesito ayuda")

		escalated, err := f.svc.Escalate(context.Background(), ticket.ID)
		require.NoError(t, err)

		assert.Equal(t, model.TicketStatusInProgress, escalated.Status)
		require.NotNil(t, escalated.AISummary)
		assert.Equal(t, "hola | tengo un problema grave | necesito ayuda", *escalated.AISummary)
		require.NotNil(t, escalated.Resolution)
		assert.False(t, escalated.ResolvedByAI)

		remaining, err := f.messages.ListByTicket(context.Background(), ticket.ID)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		events, err := f.events.ListByTicket(context.Background(), ticket.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, model.EventEscalated, events[0].Type)
	})

	t.Run("second escalate is refused", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t, "hola")

		_, err := f.svc.Escalate(context.Background(), ticket.ID)
		require.NoError(t, err)

		_, err = f.svc.Escalate(context.Background(), ticket.ID)
		assert.ErrorIs(t, err, ErrAlreadySummarized)
	})

	t.Run("transaction failure leaves messages in place", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t, "hola")
		f.tx.err = errors.New("deadlock")

		_, err := f.svc.Escalate(context.Background(), ticket.ID)
		assert.Error(t, err)

		remaining, err := f.messages.ListByTicket(context.Background(), ticket.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})
}

func TestTicketService_CloseByAI(t *testing.T) {
	f := newTicketFixture()
	ticket := f.seedTicket(t, "como reseteo mi clave", "ya está, gracias")

	closed, err := f.svc.CloseByAI(context.Background(), ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, model.TicketStatusResolved, closed.Status)
	assert.True(t, closed.ResolvedByAI)
	require.NotNil(t, closed.Resolution)
	assert.Equal(t, "Resuelto automáticamente por IA", *closed.Resolution)
}

func TestTicketService_CheckMute(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t)

	muted, err := f.svc.CheckMute(ctx, "+54 9 11 1234-5678")
	require.NoError(t, err)
	assert.False(t, muted)

	_, err = f.svc.SetBotPaused(ctx, ticket.CustomerID, true)
	require.NoError(t, err)

	muted, err = f.svc.CheckMute(ctx, "5491112345678")
	require.NoError(t, err)
	assert.True(t, muted)

	t.Run("unknown number is not muted", func(t *testing.T) {
		muted, err := f.svc.CheckMute(ctx, "5491100000000")
		require.NoError(t, err)
		assert.False(t, muted)
	})
}

func TestTicketService_SetBotPaused(t *testing.T) {
	t.Run("enqueues the blacklist sync", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t)

		_, err := f.svc.SetBotPaused(context.Background(), ticket.CustomerID, true)
		require.NoError(t, err)

		require.Len(t, f.muteSync.jobs, 1)
		assert.Equal(t, relay.BlacklistAdd, f.muteSync.jobs[0].Intent)
		assert.Equal(t, "5491112345678", f.muteSync.jobs[0].Phone)

		_, err = f.svc.SetBotPaused(context.Background(), ticket.CustomerID, false)
		require.NoError(t, err)
		require.Len(t, f.muteSync.jobs, 2)
		assert.Equal(t, relay.BlacklistRemove, f.muteSync.jobs[1].Intent)
	})

	t.Run("enqueue failure does not undo the flag", func(t *testing.T) {
		f := newTicketFixture()
		ticket := f.seedTicket(t)
		f.muteSync.err = errors.New("stream full")

		customer, err := f.svc.SetBotPaused(context.Background(), ticket.CustomerID, true)
		require.NoError(t, err)
		assert.True(t, customer.BotPaused())
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newTicketFixture()
		_, err := f.svc.SetBotPaused(context.Background(), 999, true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
