package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Booking configuration
	DefaultCurrency string
	SeatHoldTimeout time.Duration
	CleanupInterval time.Duration

	// Payment gateway configuration
	GatewayMerchantID   string
	GatewayDeclineAbove decimal.Decimal
	PaymentTimeout      time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Booking
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
		SeatHoldTimeout: getEnvAsDuration("SEAT_HOLD_TIMEOUT", "5m"),
		CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", "30s"),

		// Gateway
		GatewayMerchantID:   getEnv("GATEWAY_MERCHANT_ID", "DEV"),
		GatewayDeclineAbove: getEnvAsDecimal("GATEWAY_DECLINE_ABOVE", "0"),
		PaymentTimeout:      getEnvAsDuration("PAYMENT_TIMEOUT", "10m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsDecimal(key string, defaultValue string) decimal.Decimal {
	valueStr := getEnv(key, defaultValue)
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	value, _ := decimal.NewFromString(defaultValue)
	return value
}
