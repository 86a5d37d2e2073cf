package mutesync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lexvia/case-gateway/internal/queue"
	"github.com/lexvia/case-gateway/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlacklistSetter struct {
	calls []string
	err   error
}

func (f *fakeBlacklistSetter) SetBlacklist(_ context.Context, number string, intent relay.BlacklistIntent) error {
	f.calls = append(f.calls, number+":"+string(intent))
	return f.err
}

func queueMessageFor(t *testing.T, job Job) *queue.Message {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func TestBlacklistProcessor_Process(t *testing.T) {
	ctx := context.Background()
	job := Job{CustomerID: 42, Phone: "5491112345678", Intent: relay.BlacklistAdd}

	t.Run("applies the mutation and acks", func(t *testing.T) {
		setter := &fakeBlacklistSetter{}
		p := NewBlacklistProcessor(setter, NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig()))

		err := p.Process(ctx, queueMessageFor(t, job))
		require.NoError(t, err)
		assert.Equal(t, []string{"5491112345678:add"}, setter.calls)
	})

	t.Run("redelivery of a synced job is a no-op", func(t *testing.T) {
		setter := &fakeBlacklistSetter{}
		p := NewBlacklistProcessor(setter, NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig()))

		require.NoError(t, p.Process(ctx, queueMessageFor(t, job)))
		require.NoError(t, p.Process(ctx, queueMessageFor(t, job)))
		assert.Len(t, setter.calls, 1)
	})

	t.Run("relay failure nacks for retry", func(t *testing.T) {
		setter := &fakeBlacklistSetter{err: errors.New("relay down")}
		p := NewBlacklistProcessor(setter, NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig()))

		err := p.Process(ctx, queueMessageFor(t, job))
		assert.Error(t, err)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		setter := &fakeBlacklistSetter{err: errors.New("relay down")}
		config := DefaultIdempotencyConfig()
		config.MaxRetries = 2
		p := NewBlacklistProcessor(setter, NewIdempotencyService(newMockRedisAdapter(), config))

		assert.Error(t, p.Process(ctx, queueMessageFor(t, job)))
		assert.Error(t, p.Process(ctx, queueMessageFor(t, job)))
		// Third delivery acks without touching the relay again.
		assert.NoError(t, p.Process(ctx, queueMessageFor(t, job)))
		assert.Len(t, setter.calls, 2)
	})

	t.Run("unconfigured relay drops the job", func(t *testing.T) {
		setter := &fakeBlacklistSetter{err: relay.ErrNotConfigured}
		p := NewBlacklistProcessor(setter, NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig()))

		assert.NoError(t, p.Process(ctx, queueMessageFor(t, job)))
	})

	t.Run("malformed payload is rejected", func(t *testing.T) {
		setter := &fakeBlacklistSetter{}
		p := NewBlacklistProcessor(setter, NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig()))

		err := p.Process(ctx, &queue.Message{ID: "1-1", Data: []byte("{not json")})
		assert.Error(t, err)
		assert.Empty(t, setter.calls)
	})
}
