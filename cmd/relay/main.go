package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PushMessage mirrors the payload the gateway sends for every token in a
// multicast call.
type PushMessage struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

type MulticastRequest struct {
	ProjectID string       `json:"project_id" binding:"required"`
	Tokens    []string     `json:"tokens" binding:"required"`
	Message   *PushMessage `json:"message" binding:"required"`
}

type TokenResult struct {
	Token     string `json:"token"`
	OK        bool   `json:"ok"`
	ErrorCode string `json:"error_code,omitempty"`
}

type MulticastResponse struct {
	Results []TokenResult `json:"results"`
}

type TopicRequest struct {
	ProjectID string       `json:"project_id" binding:"required"`
	Topic     string       `json:"topic" binding:"required"`
	Message   *PushMessage `json:"message" binding:"required"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	RelayID      string    `json:"relay_id"`
	Timestamp    time.Time `json:"timestamp"`
	DeliveryRate float64   `json:"delivery_rate"`
}

// MockRelay simulates a push delivery provider. Per-token outcomes are
// random: most succeed, failures split between transient errors and dead
// registrations.
type MockRelay struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	relayID      string
	rng          *rand.Rand
}

func NewMockRelay(deliveryRate float64, minDelay, maxDelay time.Duration) *MockRelay {
	return &MockRelay{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		relayID:      "MOCK_RELAY_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockRelay) simulateMulticast(req *MulticastRequest) *MulticastResponse {
	delay := m.randomDelay()

	// High priority batches get faster delivery
	if req.Message.Priority == "high" {
		delay = delay / 2
	}
	time.Sleep(delay)

	resp := &MulticastResponse{Results: make([]TokenResult, 0, len(req.Tokens))}
	delivered := 0
	for _, token := range req.Tokens {
		if m.shouldSucceed() {
			resp.Results = append(resp.Results, TokenResult{Token: token, OK: true})
			delivered++
			continue
		}
		resp.Results = append(resp.Results, TokenResult{
			Token:     token,
			OK:        false,
			ErrorCode: m.randomErrorCode(),
		})
	}

	log.Info().
		Str("project_id", req.ProjectID).
		Int("tokens", len(req.Tokens)).
		Int("delivered", delivered).
		Dur("delay", delay).
		Msg("Multicast processed")
	return resp
}

func (m *MockRelay) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	randomDelta := time.Duration(m.rng.Int63n(int64(delta)))
	return m.minDelay + randomDelta
}

func (m *MockRelay) shouldSucceed() bool {
	return m.rng.Float64() < m.deliveryRate
}

func (m *MockRelay) randomErrorCode() string {
	errorCodes := []string{
		"UNREGISTERED",
		"INVALID_TOKEN",
		"UNAVAILABLE",
		"INTERNAL",
		"QUOTA_EXCEEDED",
	}
	return errorCodes[m.rng.Intn(len(errorCodes))]
}

// Handler struct holds the mock relay and routes
type Handler struct {
	relay *MockRelay
}

func NewHandler(relay *MockRelay) *Handler {
	return &Handler{relay: relay}
}

// SendMulticast handles multicast push requests
func (h *Handler) SendMulticast(c *gin.Context) {
	var req MulticastRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, h.relay.simulateMulticast(&req))
}

// SendToTopic handles topic push requests
func (h *Handler) SendToTopic(c *gin.Context) {
	var req TopicRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	time.Sleep(h.relay.randomDelay())

	log.Info().
		Str("project_id", req.ProjectID).
		Str("topic", req.Topic).
		Msg("Topic push processed")

	c.JSON(http.StatusAccepted, gin.H{
		"topic":    req.Topic,
		"relay_id": h.relay.relayID,
	})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	// Simulate 5% downtime
	if h.relay.rng.Float64() < 0.05 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "Relay temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		RelayID:      h.relay.relayID,
		Timestamp:    time.Now(),
		DeliveryRate: h.relay.deliveryRate,
	})
}

// UpdateConfig allows changing relay configuration at runtime
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
		"status":        "Configuration updated",
		"delivery_rate": h.relay.deliveryRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
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

	// API routes
	v1 := router.Group("/v1")
	{
		v1.POST("/push/multicast", handler.SendMulticast)
		v1.POST("/push/topic", handler.SendToTopic)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 500*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Push Relay")

	// Create mock relay
	relay := NewMockRelay(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(relay)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
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

// Helper functions
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
