package mutesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/lexvia/case-gateway/pkg/redis"
)

var (
	ErrAlreadySynced      = errors.New("mute state already synced")
	ErrLockAcquireFailed  = errors.New("failed to acquire sync lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL      time.Duration
	ProcessedTTL time.Duration
	MaxRetries   int

	RetryKeyPrefix     string
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "mute:retry:",
		LockKeyPrefix:      "mute:lock:",
		ProcessedKeyPrefix: "mute:done:",
	}
}

// IdempotencyService guards against double-applying a blacklist mutation when
// a queue entry is redelivered or claimed by two consumers. The processed
// marker TTL is short on purpose: re-applying the same intent after an hour
// is harmless, the relay call is itself idempotent.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type SyncContext struct {
	Key          string
	RetryCount   int
	lockAcquired bool
}

func (s *IdempotencyService) AcquireLock(ctx context.Context, key string) (*SyncContext, error) {
	processedKey := s.config.ProcessedKeyPrefix + key
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		logger.Warn("failed to check synced marker", "key", key, "error", err)
		// A duplicate relay call is cheaper than a stuck queue entry.
	} else if exists > 0 {
		return nil, ErrAlreadySynced
	}

	retryKey := s.config.RetryKeyPrefix + key
	retryCount := 0
	if raw, err := s.redis.Get(retryKey); err == nil && len(raw) > 0 {
		fmt.Sscanf(string(raw), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: key=%s, retries=%d", ErrMaxRetriesExceeded, key, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + key
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	return &SyncContext{
		Key:          key,
		RetryCount:   retryCount,
		lockAcquired: true,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, sc *SyncContext) error {
	processedKey := s.config.ProcessedKeyPrefix + sc.Key
	if err := s.redis.Set(processedKey, []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to mark as synced: %w", err)
	}

	if err := s.redis.Del(s.config.LockKeyPrefix + sc.Key); err != nil {
		logger.Warn("failed to cleanup lock", "key", sc.Key, "error", err)
	}
	if err := s.redis.Del(s.config.RetryKeyPrefix + sc.Key); err != nil {
		logger.Warn("failed to cleanup retry counter", "key", sc.Key, "error", err)
	}
	sc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, sc *SyncContext, reason error) {
	retryKey := s.config.RetryKeyPrefix + sc.Key
	newRetryCount := sc.RetryCount + 1
	if err := s.redis.Set(retryKey, []byte(fmt.Sprintf("%d", newRetryCount)), s.config.ProcessedTTL); err != nil {
		logger.Error("failed to increment retry counter", "key", sc.Key, "error", err)
	}

	if err := s.redis.Del(s.config.LockKeyPrefix + sc.Key); err != nil {
		logger.Warn("failed to remove lock", "key", sc.Key, "error", err)
	}
	sc.lockAcquired = false

	logger.Warn("mute sync failed, will retry",
		"key", sc.Key,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, sc *SyncContext) {
	if sc == nil || !sc.lockAcquired {
		return
	}
	if err := s.redis.Del(s.config.LockKeyPrefix + sc.Key); err != nil {
		logger.Warn("failed to release lock", "key", sc.Key, "error", err)
		return
	}
	sc.lockAcquired = false
}

func (s *IdempotencyService) IsSynced(ctx context.Context, key string) (bool, error) {
	exists, err := s.redis.Exist(s.config.ProcessedKeyPrefix + key)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
