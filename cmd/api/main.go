package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lexvia/case-gateway/internal/ai"
	"github.com/lexvia/case-gateway/internal/config"
	"github.com/lexvia/case-gateway/internal/handlers"
	"github.com/lexvia/case-gateway/internal/media"
	"github.com/lexvia/case-gateway/internal/mutesync"
	"github.com/lexvia/case-gateway/internal/queue"
	"github.com/lexvia/case-gateway/internal/relay"
	"github.com/lexvia/case-gateway/internal/repository"
	"github.com/lexvia/case-gateway/internal/services"
	xhttp "github.com/lexvia/case-gateway/pkg/http"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/lexvia/case-gateway/pkg/pg"
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

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 30))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
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

	muteQueue, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating mute-sync queue", "error", err)
		return
	}

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
	if !relayClient.Configured() {
		logger.Warn("relay credentials missing, outbound sends are disabled")
	}

	mediaStore, err := media.NewDiskStore(config.Get().MediaDir, config.Get().MediaBaseURL)
	if err != nil {
		logger.Error("failed to create media store", "error", err)
		return
	}
	archiver, err := media.NewArchiver(&media.Config{Timeout: config.Get().MediaTimeout}, mediaStore)
	if err != nil {
		logger.Error("failed to create media archiver", "error", err)
		return
	}

	var summarizer ai.Summarizer
	if config.Get().OpenAIAPIKey != "" {
		summarizer, err = ai.NewOpenAIClient(&ai.Config{
			APIKey:  config.Get().OpenAIAPIKey,
			BaseURL: config.Get().OpenAIBaseURL,
			Model:   config.Get().OpenAIModel,
			Timeout: config.Get().OpenAITimeout,
		})
		if err != nil {
			logger.Error("failed to create summarizer", "error", err)
			return
		}
	}

	customerRepo := repository.NewCustomerRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// services
	pipelineService := services.NewPipelineService(
		customerRepo, ticketRepo, messageRepo, eventRepo,
		relayClient, archiver,
		services.PipelineOptions{
			DefaultCountryCode: config.Get().DefaultCountryCode,
			ActiveWindow:       config.Get().ActiveWindow(),
			EscalationNotice:   config.Get().EscalationNotice,
		})
	ticketService := services.NewTicketService(
		ticketRepo, messageRepo, eventRepo, customerRepo,
		db, relayClient, summarizer, mutesync.NewPublisher(muteQueue),
		config.Get().DefaultCountryCode)
	healthService := services.NewHealthService(redisAdap)

	if config.Get().WebhookSecret == "" {
		logger.Warn("webhook secret missing, all inbound webhooks will be rejected")
	}

	// v1 handlers
	webhookHandler := handlers.NewWebhookHandler(pipelineService, ticketService, config.Get().WebhookSecret)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterWebhookRoutes(g, webhookHandler)
	handlers.RegisterTicketRoutes(g, ticketHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

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
		prom.ListenAndServer(":9100", "/metrics")
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
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
