// Package config loads the dashboard configuration from the environment
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port      int
	PublicURL string
	Debug     bool

	RiskDataURL         string
	RiskCacheTTL        time.Duration
	RiskRefreshSchedule string

	SessionIdleTimeout   time.Duration
	SessionSweepSchedule string

	DBDriver string
	DBDSN    string

	TelegramBotToken string
	AlertBotURL      string
	AlertRateLimit   float64 // messages per second

	OpenAIAPIKey string
}

// Load reads the .env file, when present, and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only
func FromEnv() *Config {
	return &Config{
		Port:      getEnvInt("PORT", 8080),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
		Debug:     getEnvBool("DEBUG", false),

		RiskDataURL:         getEnv("RISK_DATA_URL", ""),
		RiskCacheTTL:        getEnvDuration("RISK_CACHE_TTL", time.Hour),
		RiskRefreshSchedule: getEnv("RISK_REFRESH_SCHEDULE", "0 * * * *"),

		SessionIdleTimeout:   getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionSweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "*/5 * * * *"),

		DBDriver: getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:    getEnv("DB_DSN", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AlertBotURL:      getEnv("ALERT_BOT_URL", ""),
		AlertRateLimit:   getEnvFloat("ALERT_RATE_LIMIT", 20),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
	}
}

// AlertsEnabled reports whether the Telegram alert bot is configured
func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
