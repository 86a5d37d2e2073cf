package repository

import (
	"context"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/pkg/pg"
)

// EventRepository is the append-only audit journal. Events are never updated
// or deleted.
type EventRepository struct {
	*pg.DB
}

func NewEventRepository(db *pg.DB) *EventRepository {
	return &EventRepository{
		db,
	}
}

func (r *EventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	entity := toEventEntity(event)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toEventModel(entity), nil
}

func (r *EventRepository) ListByTicket(ctx context.Context, ticketID int64) ([]*model.Event, error) {
	var entities []*EventEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toEventModels(entities), nil
}
