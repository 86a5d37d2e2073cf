package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerRepository_UpsertByPhone(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCustomerRepository(db)
	ctx := context.Background()

	t.Run("creates on first contact", func(t *testing.T) {
		c, err := repo.UpsertByPhone(ctx, "5491112345678", "Juan Perez")
		require.NoError(t, err)
		assert.NotZero(t, c.ID)
		assert.Equal(t, "5491112345678", c.Phone)
		require.NotNil(t, c.Name)
		assert.Equal(t, "Juan Perez", *c.Name)
	})

	t.Run("creates without name", func(t *testing.T) {
		c, err := repo.UpsertByPhone(ctx, "5491199999999", "")
		require.NoError(t, err)
		assert.Nil(t, c.Name)
	})

	t.Run("updates name when supplied", func(t *testing.T) {
		c, err := repo.UpsertByPhone(ctx, "5491199999999", "Empresa SA")
		require.NoError(t, err)
		require.NotNil(t, c.Name)
		assert.Equal(t, "Empresa SA", *c.Name)
	})

	t.Run("empty name never clears an existing one", func(t *testing.T) {
		c, err := repo.UpsertByPhone(ctx, "5491112345678", "")
		require.NoError(t, err)
		require.NotNil(t, c.Name)
		assert.Equal(t, "Juan Perez", *c.Name)
	})

	t.Run("phone stays unique across upserts", func(t *testing.T) {
		first, err := repo.UpsertByPhone(ctx, "5491112345678", "")
		require.NoError(t, err)
		second, err := repo.UpsertByPhone(ctx, "5491112345678", "Otro Nombre")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})
}

func TestCustomerRepository_SetBotPaused(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCustomerRepository(db)
	ctx := context.Background()

	c, err := repo.UpsertByPhone(ctx, "5491112340000", "")
	require.NoError(t, err)
	assert.False(t, c.BotPaused())

	t.Run("pause sets the marker", func(t *testing.T) {
		paused, err := repo.SetBotPaused(ctx, c.ID, true)
		require.NoError(t, err)
		assert.True(t, paused.BotPaused())
	})

	t.Run("unpause clears the marker", func(t *testing.T) {
		unpaused, err := repo.SetBotPaused(ctx, c.ID, false)
		require.NoError(t, err)
		assert.False(t, unpaused.BotPaused())
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := repo.SetBotPaused(ctx, 99999, true)
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})
}

func TestCustomerRepository_FindByPhone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCustomerRepository(db.DB)
	ctx := context.Background()

	_, err := repo.UpsertByPhone(ctx, "5491111111111", "")
	require.NoError(t, err)

	t.Run("finds by normalized phone", func(t *testing.T) {
		c, err := repo.FindByPhone(ctx, "5491111111111")
		require.NoError(t, err)
		assert.Equal(t, "5491111111111", c.Phone)
	})

	t.Run("matches legacy plus-prefixed rows", func(t *testing.T) {
		legacy := CustomerEntity{Phone: "+5491122222222"}
		require.NoError(t, db.rawDB.Create(&legacy).Error)

		c, err := repo.FindByPhone(ctx, "5491122222222")
		require.NoError(t, err)
		assert.Equal(t, legacy.ID, c.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByPhone(ctx, "5491133333333")
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})
}
