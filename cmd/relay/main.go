package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Local stand-in for the BuilderBot cloud API, used to run the gateway
// end to end without real WhatsApp credentials.

// SendMessageRequest mirrors the /messages payload the gateway emits.
type SendMessageRequest struct {
	Messages struct {
		Content  string `json:"content" binding:"required"`
		MediaURL string `json:"mediaUrl"`
	} `json:"messages" binding:"required"`
	Number        string `json:"number" binding:"required"`
	CheckIfExists bool   `json:"checkIfExists"`
}

type SendMessageResponse struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

// BlacklistRequest mirrors the /blacklist payload.
type BlacklistRequest struct {
	Number string `json:"number" binding:"required"`
	Intent string `json:"intent" binding:"required"`
}

// MockRelay simulates BuilderBot delivery with a configurable failure rate
// and an in-memory blacklist.
type MockRelay struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	instanceID   string
	rng          *rand.Rand

	mu        sync.Mutex
	blacklist map[string]bool
}

func NewMockRelay(deliveryRate float64, minDelay, maxDelay time.Duration) *MockRelay {
	return &MockRelay{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		instanceID:   "MOCK_RELAY_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		blacklist:    make(map[string]bool),
	}
}

func (m *MockRelay) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockRelay) shouldSucceed() bool {
	return m.rng.Float64() < m.deliveryRate
}

func (m *MockRelay) setBlacklist(number string, add bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if add {
		m.blacklist[number] = true
	} else {
		delete(m.blacklist, number)
	}
}

func (m *MockRelay) isBlacklisted(number string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blacklist[number]
}

type Handler struct {
	relay  *MockRelay
	apiKey string
}

func NewHandler(relay *MockRelay, apiKey string) *Handler {
	return &Handler{relay: relay, apiKey: apiKey}
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.apiKey == "" {
		return true
	}
	if c.GetHeader("x-api-builderbot") == h.apiKey {
		return true
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
	return false
}

// SendMessage simulates an outbound WhatsApp delivery.
func (h *Handler) SendMessage(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("bot_id", c.Param("bot_id")).
		Str("number", req.Number).
		Str("content", req.Messages.Content).
		Msg("Received send request")

	time.Sleep(h.relay.randomDelay())

	if h.relay.isBlacklisted(req.Number) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "number is muted",
			"number": req.Number,
		})
		return
	}

	if !h.relay.shouldSucceed() {
		log.Warn().Str("number", req.Number).Msg("Simulated delivery failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed"})
		return
	}

	c.JSON(http.StatusCreated, SendMessageResponse{
		ID:          uuid.New().String(),
		Number:      req.Number,
		Status:      "sent",
		ProcessedAt: time.Now(),
	})
}

// SetBlacklist adds or removes a number from the bot's mute list.
func (h *Handler) SetBlacklist(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	switch req.Intent {
	case "add":
		h.relay.setBlacklist(req.Number, true)
	case "remove":
		h.relay.setBlacklist(req.Number, false)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "intent must be add or remove"})
		return
	}

	log.Info().
		Str("number", req.Number).
		Str("intent", req.Intent).
		Msg("Blacklist updated")

	c.JSON(http.StatusOK, gin.H{
		"number":      req.Number,
		"intent":      req.Intent,
		"blacklisted": h.relay.isBlacklisted(req.Number),
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"instance_id":   h.relay.instanceID,
		"timestamp":     time.Now(),
		"delivery_rate": h.relay.deliveryRate,
	})
}

// UpdateConfig allows changing the failure rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeliveryRate != nil {
		if *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
			h.relay.deliveryRate = *config.DeliveryRate
			log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.relay.deliveryRate,
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v2 := router.Group("/api/v2")
	{
		v2.POST("/:bot_id/messages", handler.SendMessage)
		v2.POST("/:bot_id/blacklist", handler.SetBlacklist)
	}

	router.GET("/health", handler.HealthCheck)
	router.PUT("/config", handler.UpdateConfig)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	apiKey := getEnv("RELAY_API_KEY", "")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 1*time.Second)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock WhatsApp Relay")

	relay := NewMockRelay(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(relay, apiKey)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
