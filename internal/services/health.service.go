package services

import (
	"context"
	"time"

	"github.com/lexvia/case-gateway/pkg/redis"
)

// HealthService answers liveness probes. Redis is optional; a nil adapter
// reports healthy on its own.
type HealthService struct {
	redis redis.RedisAdapter
}

func NewHealthService(redisAdapter redis.RedisAdapter) *HealthService {
	return &HealthService{redis: redisAdapter}
}

func (s *HealthService) Get() error {
	if s.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.redis.Client().Ping(ctx).Err()
}
