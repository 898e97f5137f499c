package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	LogLevel       string
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Assignment engine
	RoutingStrategy string
	RoutingInterval time.Duration
	SettingsPath    string

	// Event dispatch
	DispatchBuffer int

	// Messaging gateway
	GatewayURL     string
	GatewayToken   string
	GatewayTimeout time.Duration

	// Workflow automation (n8n)
	WorkflowURL    string
	WorkflowAPIKey string

	// Event fan-out, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RoutingStrategy: getEnv("ROUTING_STRATEGY", "least_loaded"),
		SettingsPath:    getEnv("SETTINGS_PATH", "data/queue-settings.json"),
		GatewayURL:      strings.TrimSuffix(getEnv("GATEWAY_URL", ""), "/"),
		GatewayToken:    getEnv("GATEWAY_TOKEN", ""),
		WorkflowURL:     strings.TrimSuffix(getEnv("WORKFLOW_URL", ""), "/"),
		WorkflowAPIKey:  getEnv("WORKFLOW_API_KEY", ""),
		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "supportdesk.events"),
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	routingInterval, err := time.ParseDuration(getEnv("ROUTING_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROUTING_INTERVAL: %w", err)
	}
	if routingInterval <= 0 {
		return nil, fmt.Errorf("invalid ROUTING_INTERVAL: must be positive, got %s", routingInterval)
	}
	config.RoutingInterval = routingInterval

	gatewayTimeout, err := time.ParseDuration(getEnv("GATEWAY_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_TIMEOUT: %w", err)
	}
	config.GatewayTimeout = gatewayTimeout

	dispatchBuffer, err := strconv.Atoi(getEnv("DISPATCH_BUFFER", "1024"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_BUFFER: %w", err)
	}
	if dispatchBuffer < 1 {
		return nil, fmt.Errorf("invalid DISPATCH_BUFFER: must be at least 1, got %d", dispatchBuffer)
	}
	config.DispatchBuffer = dispatchBuffer

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
