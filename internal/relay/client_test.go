package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		client, err := NewClient(nil)
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("missing base url returns error", func(t *testing.T) {
		client, err := NewClient(&Config{})
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("valid config creates client", func(t *testing.T) {
		client, err := NewClient(&Config{
			BaseURL: "https://app.builderbot.cloud",
			BotID:   "bot-1",
			APIKey:  "secret",
		})
		require.NoError(t, err)
		require.NotNil(t, client)
		assert.True(t, client.Configured())
	})

	t.Run("zero timeouts get defaults", func(t *testing.T) {
		client, err := NewClient(&Config{BaseURL: "https://app.builderbot.cloud"})
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, client.config.SendTimeout)
		assert.Equal(t, 10*time.Second, client.config.MuteTimeout)
	})
}

func TestClient_DryMode(t *testing.T) {
	client, err := NewClient(&Config{BaseURL: "https://app.builderbot.cloud"})
	require.NoError(t, err)
	assert.False(t, client.Configured())

	t.Run("send is refused without credentials", func(t *testing.T) {
		err := client.Send(context.Background(), "5491112345678", "hola", "")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("blacklist is refused without credentials", func(t *testing.T) {
		err := client.SetBlacklist(context.Background(), "5491112345678", BlacklistAdd)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}
