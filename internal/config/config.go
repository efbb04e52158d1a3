package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string // empty = in-memory store (dev mode)
	CORSOrigins string
	AMQPURL     string // empty = event publishing disabled

	// Availability display settings
	StockDisplayMode  string
	ShowQuantity      bool
	LocalDeliveryDays string
	OrderDeliveryDays string

	// Storefront aggregate cache
	AvailabilityCacheSize int
	AvailabilityCacheTTL  int // seconds
}

func Load() *Config {
	// .env is optional; real deployments set env vars.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		AMQPURL:     getEnv("AMQP_URL", ""),

		StockDisplayMode:  getEnv("STOCK_DISPLAY_MODE", "by_city"),
		ShowQuantity:      getEnvBool("STOCK_SHOW_QUANTITY", false),
		LocalDeliveryDays: getEnv("STOCK_LOCAL_DELIVERY_DAYS", "1-4 дня"),
		OrderDeliveryDays: getEnv("STOCK_ORDER_DELIVERY_DAYS", "14-21 день"),

		AvailabilityCacheSize: getEnvInt("AVAILABILITY_CACHE_SIZE", 1024),
		AvailabilityCacheTTL:  getEnvInt("AVAILABILITY_CACHE_TTL", 15),
	}

	if cfg.DatabaseDSN == "" {
		log.Warn().Msg("DATABASE_DSN not set, using in-memory store; data is lost on restart")
	}
	if cfg.AMQPURL == "" {
		log.Info().Msg("AMQP_URL not set, stock event publishing disabled")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
