package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Alpaca streaming feed
	AlpacaAPIKey    string
	AlpacaSecretKey string
	AlpacaBaseURL   string
	AlpacaWSURL     string

	// Symbols subscribed on the realtime feed (trades and bars share the list)
	StreamSymbols []string

	// Database configuration
	DatabaseHost     string
	DatabasePort     int
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisStreamMaxLen int64

	// Kafka configuration
	KafkaBootstrapServers []string
	KafkaEnableAutoCommit bool

	// HTTP API
	APIPort        int
	AllowedOrigins []string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AlpacaAPIKey:    os.Getenv("ALPACA_API_KEY"),
		AlpacaSecretKey: os.Getenv("ALPACA_SECRET_KEY"),
		AlpacaBaseURL:   getEnvOrDefault("ALPACA_BASE_URL", "https://data.alpaca.markets"),
		AlpacaWSURL:     getEnvOrDefault("ALPACA_WS_URL", "wss://stream.data.alpaca.markets/v2/iex"),

		StreamSymbols: getEnvList("STREAM_SYMBOLS", []string{"AAPL", "MSFT", "GOOGL"}),

		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvInt("DB_PORT", 5432),
		DatabaseName:     getEnvOrDefault("DB_NAME", "market_data"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "postgres"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", ""),

		RedisHost:         getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:         getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:     getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisStreamMaxLen: int64(getEnvInt("REDIS_STREAM_MAXLEN", 20000)),

		KafkaBootstrapServers: getEnvList("KAFKA_BOOTSTRAP_SERVERS", []string{"localhost:9093"}),
		KafkaEnableAutoCommit: getEnvOrDefault("KAFKA_ENABLE_AUTO_COMMIT", "false") == "true",

		APIPort:        getEnvInt("API_PORT", 8080),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList gets a comma-separated environment variable as a string slice
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
