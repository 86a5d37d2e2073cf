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
	ErrCustomerNotFound = errors.New("customer not found")
)

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

// UpsertByPhone resolves a customer by their normalized phone number,
// creating the record on first contact. A non-empty name updates the stored
// name; an empty one never clears it.
func (r *CustomerRepository) UpsertByPhone(ctx context.Context, phone, name string) (*model.Customer, error) {
	var entity CustomerEntity

	err := r.Write(ctx).WithContext(ctx).
		Where("phone = ?", phone).
		First(&entity).
		Error

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		entity = CustomerEntity{Phone: phone}
		if name != "" {
			entity.Name = &name
		}
		if err := r.Write(ctx).WithContext(ctx).Create(&entity).Error; err != nil {
			return nil, err
		}
		return toCustomerModel(&entity), nil
	}

	if name != "" && (entity.Name == nil || *entity.Name != name) {
		entity.Name = &name
		if err := r.Write(ctx).WithContext(ctx).
			Model(&CustomerEntity{}).
			Where("id = ?", entity.ID).
			Update("name", name).
			Error; err != nil {
			return nil, err
		}
	}

	return toCustomerModel(&entity), nil
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

// FindByPhone looks a customer up by normalized phone. Legacy rows imported
// with a leading "+" are matched too.
func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("phone = ? OR phone = ?", phone, "+"+phone).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

// SetBotPaused toggles the do-not-auto-reply marker.
func (r *CustomerRepository) SetBotPaused(ctx context.Context, id int64, paused bool) (*model.Customer, error) {
	var pausedAt *time.Time
	if paused {
		now := time.Now()
		pausedAt = &now
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CustomerEntity{}).
		Where("id = ?", id).
		Update("bot_paused_at", pausedAt)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCustomerNotFound
	}

	return r.Get(ctx, id)
}
