package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lexvia/case-gateway/internal/config"
	"github.com/lexvia/case-gateway/internal/mutesync"
	"github.com/lexvia/case-gateway/internal/relay"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/lexvia/case-gateway/pkg/prom"
	"github.com/lexvia/case-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	relayClient, err := relay.NewClient(&relay.Config{
		BaseURL:     config.Get().RelayBaseURL,
		BotID:       config.Get().RelayBotID,
		APIKey:      config.Get().RelayAPIKey,
		SendTimeout: config.Get().RelaySendTimeout,
		MuteTimeout: config.Get().RelayMuteTimeout,
	})
	if err != nil {
		logger.Error("failed to create relay client", "error", err)
		return
	}

	idempotencyConfig := mutesync.DefaultIdempotencyConfig()
	idempotencyConfig.MaxRetries = config.Get().RelayMuteMaxRetries
	idempotencyService := mutesync.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := mutesync.NewService(redisAdap)
	if err != nil {
		logger.Error("failed to create mute-sync service", "error", err)
		return
	}
	service.RegisterProcessor(mutesync.NewBlacklistProcessor(relayClient, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9101", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start mute-sync service", "error", err)
		}
	}()

	select {
	case <-c:
		service.Stop()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
