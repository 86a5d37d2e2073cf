package mutesync

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lexvia/case-gateway/internal/queue"
	"github.com/lexvia/case-gateway/internal/relay"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/lexvia/case-gateway/pkg/prom"
)

// BlacklistSetter is the relay surface the processor needs.
type BlacklistSetter interface {
	SetBlacklist(ctx context.Context, number string, intent relay.BlacklistIntent) error
}

// BlacklistProcessor applies queued mute-sync jobs against the relay with
// at-most-once semantics per job key.
type BlacklistProcessor struct {
	relay       BlacklistSetter
	idempotency *IdempotencyService
}

func NewBlacklistProcessor(relayClient BlacklistSetter, idempotency *IdempotencyService) *BlacklistProcessor {
	return &BlacklistProcessor{
		relay:       relayClient,
		idempotency: idempotency,
	}
}

func (p *BlacklistProcessor) GetType() string {
	return "blacklist"
}

// Process applies one job. Return value drives the queue:
// nil acks the entry, an error leaves it pending for redelivery.
func (p *BlacklistProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var job Job
	if err := json.Unmarshal(queueMessage.Data, &job); err != nil {
		logger.Error("failed to unmarshal mute-sync job", "error", err)
		prom.AddMuteSyncResult("invalid")
		return err // malformed payload goes to the DLQ
	}

	key := job.Key()

	syncCtx, err := p.idempotency.AcquireLock(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAlreadySynced) {
			logger.Info("mute state already synced, skipping", "key", key)
			prom.AddMuteSyncResult("duplicate")
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("mute sync gave up after max retries", "key", key)
			prom.AddMuteSyncResult("exhausted")
			return nil // ack so the entry moves on; the DB flag stays authoritative
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		return err
	}

	defer p.idempotency.ReleaseLock(ctx, syncCtx)

	logger.Info("syncing mute state to relay",
		"key", key,
		"phone", job.Phone,
		"intent", string(job.Intent),
		"retry_count", syncCtx.RetryCount)

	if err := p.relay.SetBlacklist(ctx, job.Phone, job.Intent); err != nil {
		if errors.Is(err, relay.ErrNotConfigured) {
			// Nothing to sync against; treat as done so jobs don't pile up.
			logger.Warn("relay not configured, dropping mute-sync job", "key", key)
			prom.AddMuteSyncResult("unconfigured")
			_ = p.idempotency.MarkSuccess(ctx, syncCtx)
			return nil
		}
		p.idempotency.MarkFailure(ctx, syncCtx, err)
		prom.AddMuteSyncResult("failed")
		prom.AddRelayFailure("blacklist")
		return err
	}

	if err := p.idempotency.MarkSuccess(ctx, syncCtx); err != nil {
		logger.Error("failed to mark mute sync success", "key", key, "error", err)
		// The relay call went through; do not retry it.
	}

	prom.AddMuteSyncResult("synced")
	return nil
}
