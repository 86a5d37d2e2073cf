package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
)

type TicketRepository struct {
	*pg.DB
}

func NewTicketRepository(db *pg.DB) *TicketRepository {
	return &TicketRepository{
		db,
	}
}

// FindActive returns the customer's most recent ticket that is still open
// (status OPEN/IN_PROGRESS/WAITING_CUSTOMER) and was touched within the
// window. Nil without error when none qualifies.
//
// This is a snapshot read: two near-simultaneous inbound events for the same
// customer can both miss and each create a ticket. That duplication is rare
// and low-harm, so no per-customer lock is taken.
func (r *TicketRepository) FindActive(ctx context.Context, customerID int64, now time.Time, window time.Duration) (*model.Ticket, error) {
	statuses := make([]string, 0, 3)
	for _, s := range model.ActiveStatuses() {
		statuses = append(statuses, string(s))
	}

	var entity TicketEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Where("status IN ?", statuses).
		Where("last_message_at >= ?", now.Add(-window)).
		Order("last_message_at DESC").
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return toTicketModel(&entity), nil
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	entity := toTicketEntity(ticket)
	if entity.LastMessageAt.IsZero() {
		entity.LastMessageAt = time.Now()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTicketModel(entity), nil
}

func (r *TicketRepository) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	var entity TicketEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Customer").
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return toTicketModel(&entity), nil
}

// ApplyTriageUpdate is the single mutation point after each inbound message:
// priority, category, the optional policy-requested status, and the
// last-message bump happen together.
func (r *TicketRepository) ApplyTriageUpdate(ctx context.Context, id int64, update model.TriageUpdate, now time.Time) error {
	values := map[string]any{
		"priority":        string(update.Priority),
		"category":        string(update.Category),
		"last_message_at": now,
	}
	if update.SetStatus != nil {
		values["status"] = string(*update.SetStatus)
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&TicketEntity{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// TicketUpdate carries staff-driven field changes. Nil fields are untouched.
type TicketUpdate struct {
	Status        *model.TicketStatus
	Priority      *model.TicketPriority
	Category      *model.TicketCategory
	ContactName   *string
	AssignedToID  *int64
	LastMessageAt *time.Time
}

func (r *TicketRepository) Update(ctx context.Context, id int64, update TicketUpdate) (*model.Ticket, error) {
	values := map[string]any{}
	if update.Status != nil {
		values["status"] = string(*update.Status)
	}
	if update.Priority != nil {
		values["priority"] = string(*update.Priority)
	}
	if update.Category != nil {
		values["category"] = string(*update.Category)
	}
	if update.ContactName != nil {
		values["contact_name"] = *update.ContactName
	}
	if update.AssignedToID != nil {
		values["assigned_to_id"] = *update.AssignedToID
	}
	if update.LastMessageAt != nil {
		values["last_message_at"] = *update.LastMessageAt
	}

	if len(values) > 0 {
		result := r.Write(ctx).WithContext(ctx).
			Model(&TicketEntity{}).
			Where("id = ?", id).
			Updates(values)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrTicketNotFound
		}
	}

	return r.Get(ctx, id)
}

// SetSummary stores the AI summary/resolution and the resulting status. Used
// inside the grouped escalate/close transactions.
func (r *TicketRepository) SetSummary(ctx context.Context, id int64, summary, resolution string, status model.TicketStatus, resolvedByAI bool) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TicketEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"ai_summary":     summary,
			"resolution":     resolution,
			"status":         string(status),
			"resolved_by_ai": resolvedByAI,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TicketEntity{})

	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", string(*f.Priority))
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Query != nil && *f.Query != "" {
		like := "%" + *f.Query + "%"
		q = q.Where(
			"code LIKE ? OR title LIKE ? OR customer_id IN (?)",
			like, like,
			r.Read(ctx).WithContext(ctx).
				Model(&CustomerEntity{}).
				Select("id").
				Where("phone LIKE ?", like),
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*TicketEntity
	if err := q.Preload("Customer").
		Order("last_message_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entities).
		Error; err != nil {
		return nil, 0, err
	}

	return toTicketModels(entities), total, nil
}
