package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const activeWindow = 48 * time.Hour

func newTestTicket(customerID int64, status model.TicketStatus, lastMessageAt time.Time) *model.Ticket {
	return &model.Ticket{
		Code:          "RCL-2025-0130-000001",
		CustomerID:    customerID,
		Title:         "Consulta",
		Status:        status,
		Priority:      model.TicketPriorityNormal,
		Category:      model.CategoryTechSupport,
		Channel:       model.ChannelWhatsApp,
		LastMessageAt: lastMessageAt,
	}
}

func TestTicketRepository_FindActive(t *testing.T) {
	now := time.Now()

	t.Run("recent open ticket is active", func(t *testing.T) {
		db := setupTestDB(t).DB
		repo := NewTicketRepository(db)
		ctx := context.Background()

		created, err := repo.Create(ctx, newTestTicket(1, model.TicketStatusOpen, now.Add(-47*time.Hour)))
		require.NoError(t, err)

		found, err := repo.FindActive(ctx, 1, now, activeWindow)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("open ticket outside the window is not active", func(t *testing.T) {
		db := setupTestDB(t).DB
		repo := NewTicketRepository(db)
		ctx := context.Background()

		_, err := repo.Create(ctx, newTestTicket(1, model.TicketStatusOpen, now.Add(-49*time.Hour)))
		require.NoError(t, err)

		found, err := repo.FindActive(ctx, 1, now, activeWindow)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("resolved ticket is not active even when recent", func(t *testing.T) {
		db := setupTestDB(t).DB
		repo := NewTicketRepository(db)
		ctx := context.Background()

		_, err := repo.Create(ctx, newTestTicket(1, model.TicketStatusResolved, now.Add(-time.Hour)))
		require.NoError(t, err)

		found, err := repo.FindActive(ctx, 1, now, activeWindow)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("most recent active ticket wins", func(t *testing.T) {
		db := setupTestDB(t).DB
		repo := NewTicketRepository(db)
		ctx := context.Background()

		_, err := repo.Create(ctx, newTestTicket(1, model.TicketStatusOpen, now.Add(-30*time.Hour)))
		require.NoError(t, err)
		newer := newTestTicket(1, model.TicketStatusWaitingCustomer, now.Add(-2*time.Hour))
		newer.Code = "RCL-2025-0130-000002"
		created, err := repo.Create(ctx, newer)
		require.NoError(t, err)

		found, err := repo.FindActive(ctx, 1, now, activeWindow)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("other customers' tickets are ignored", func(t *testing.T) {
		db := setupTestDB(t).DB
		repo := NewTicketRepository(db)
		ctx := context.Background()

		_, err := repo.Create(ctx, newTestTicket(2, model.TicketStatusOpen, now))
		require.NoError(t, err)

		found, err := repo.FindActive(ctx, 1, now, activeWindow)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestTicketRepository_ApplyTriageUpdate(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTicketRepository(db)
	ctx := context.Background()
	now := time.Now()

	created, err := repo.Create(ctx, newTestTicket(1, model.TicketStatusOpen, now.Add(-time.Hour)))
	require.NoError(t, err)

	t.Run("updates priority and category, bumps last message", func(t *testing.T) {
		err := repo.ApplyTriageUpdate(ctx, created.ID, model.TriageUpdate{
			Priority: model.TicketPriorityUrgent,
			Category: model.CategoryBilling,
		}, now)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TicketPriorityUrgent, got.Priority)
		assert.Equal(t, model.CategoryBilling, got.Category)
		assert.Equal(t, model.TicketStatusOpen, got.Status) // untouched without a request
		assert.WithinDuration(t, now, got.LastMessageAt, time.Second)
	})

	t.Run("sets status only when requested", func(t *testing.T) {
		waiting := model.TicketStatusWaitingCustomer
		err := repo.ApplyTriageUpdate(ctx, created.ID, model.TriageUpdate{
			Priority:  model.TicketPriorityUrgent,
			Category:  model.CategoryBilling,
			SetStatus: &waiting,
		}, now)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TicketStatusWaitingCustomer, got.Status)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		err := repo.ApplyTriageUpdate(ctx, 99999, model.TriageUpdate{
			Priority: model.TicketPriorityLow,
			Category: model.CategoryOther,
		}, now)
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})
}

func TestTicketRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTicketRepository(db)
	customerRepo := NewCustomerRepository(db)
	ctx := context.Background()
	now := time.Now()

	customer, err := customerRepo.UpsertByPhone(ctx, "5491112345678", "Juan")
	require.NoError(t, err)

	open := newTestTicket(customer.ID, model.TicketStatusOpen, now.Add(-time.Hour))
	open.Title = "me despidieron sin pagarme"
	_, err = repo.Create(ctx, open)
	require.NoError(t, err)

	urgent := newTestTicket(customer.ID, model.TicketStatusInProgress, now)
	urgent.Code = "RCL-2025-0130-000002"
	urgent.Priority = model.TicketPriorityUrgent
	_, err = repo.Create(ctx, urgent)
	require.NoError(t, err)

	t.Run("filter by status", func(t *testing.T) {
		status := model.TicketStatusOpen
		items, total, err := repo.List(ctx, model.TicketFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, model.TicketStatusOpen, items[0].Status)
	})

	t.Run("filter by priority", func(t *testing.T) {
		priority := model.TicketPriorityUrgent
		items, total, err := repo.List(ctx, model.TicketFilter{Priority: &priority})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
	})

	t.Run("free text query matches title", func(t *testing.T) {
		q := "despidieron"
		items, total, err := repo.List(ctx, model.TicketFilter{Query: &q})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
	})

	t.Run("free text query matches customer phone", func(t *testing.T) {
		q := "1234567"
		_, total, err := repo.List(ctx, model.TicketFilter{Query: &q})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("ordered by last message desc", func(t *testing.T) {
		items, _, err := repo.List(ctx, model.TicketFilter{})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.True(t, !items[0].LastMessageAt.Before(items[1].LastMessageAt))
	})
}

func TestTicketRepository_SetSummary(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTicketRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestTicket(1, model.TicketStatusOpen, time.Now()))
	require.NoError(t, err)

	err = repo.SetSummary(ctx, created.ID, "resumen", "resuelto por IA", model.TicketStatusResolved, true)
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AISummary)
	assert.Equal(t, "resumen", *got.AISummary)
	require.NotNil(t, got.Resolution)
	assert.Equal(t, model.TicketStatusResolved, got.Status)
	assert.True(t, got.ResolvedByAI)
}
