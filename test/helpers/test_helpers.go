package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/internal/repository"
	"github.com/lexvia/case-gateway/pkg/pg"
	"github.com/lexvia/case-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.CustomerEntity{},
		&repository.AgentEntity{},
		&repository.TicketEntity{},
		&repository.MessageEntity{},
		&repository.EventEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestCustomer(t *testing.T, db *pg.DB, phone, name string) *repository.CustomerEntity {
	ctx := context.Background()
	customer := &repository.CustomerEntity{
		Phone: phone,
		Name:  &name,
	}
	err := db.Write(ctx).Create(customer).Error
	require.NoError(t, err)
	return customer
}

func CreateTestTicket(t *testing.T, db *pg.DB, customerID int64, code string, status model.TicketStatus) *repository.TicketEntity {
	ctx := context.Background()
	ticket := &repository.TicketEntity{
		Code:          code,
		CustomerID:    customerID,
		Title:         "Consulta",
		Status:        string(status),
		Priority:      string(model.TicketPriorityNormal),
		Category:      string(model.CategoryOther),
		Channel:       string(model.ChannelWhatsApp),
		LastMessageAt: time.Now(),
	}
	err := db.Write(ctx).Create(ticket).Error
	require.NoError(t, err)
	return ticket
}

func CreateTestMessage(t *testing.T, db *pg.DB, ticketID int64, direction model.MessageDirection, text string) *repository.MessageEntity {
	ctx := context.Background()
	msg := &repository.MessageEntity{
		TicketID:  ticketID,
		Direction: string(direction),
		FromRole:  string(model.FromCustomer),
		Text:      text,
		CreatedAt: time.Now(),
	}
	if direction == model.DirectionOutbound {
		msg.FromRole = string(model.FromBot)
	}
	err := db.Write(ctx).Create(msg).Error
	require.NoError(t, err)
	return msg
}
