package repository

import (
	"context"
	"errors"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrMessageNotFound is returned when a message does not exist.
	ErrMessageNotFound = errors.New("message not found")
)

type MessageRepository struct {
	*pg.DB
}

func NewMessageRepository(db *pg.DB) *MessageRepository {
	return &MessageRepository{
		db,
	}
}

// FindByExternalID resolves the idempotency key. Runs against the write node
// so the dedup check observes the latest committed state.
func (r *MessageRepository) FindByExternalID(ctx context.Context, externalID string) (*model.Message, error) {
	var entity MessageEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("external_message_id = ?", externalID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return toMessageModel(&entity), nil
}

// Create is a pure append; content is never rejected here.
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	entity := toMessageEntity(msg)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMessageModel(entity), nil
}

func (r *MessageRepository) CountByTicket(ctx context.Context, ticketID int64) (int64, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("ticket_id = ?", ticketID).
		Count(&count).
		Error
	return count, err
}

func (r *MessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]*model.Message, error) {
	var entities []*MessageEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toMessageModels(entities), nil
}

// DeleteByTicket purges a ticket's conversation. Only the grouped
// escalate/close-by-AI transactions call this, after summarizing.
func (r *MessageRepository) DeleteByTicket(ctx context.Context, ticketID int64) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Delete(&MessageEntity{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
