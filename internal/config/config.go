package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the runtime configuration assembled from the environment.
type Config struct {
	Port string
	Env  string

	DB    DBConfig
	Redis RedisConfig

	JWTSecret   string
	CORSOrigins string

	VerificationURL     string
	VerificationTimeout time.Duration

	WebhookTimeout   time.Duration
	WebhookWorkers   int
	WebhookQueueSize int

	IntentTTL        time.Duration
	SettingsCacheTTL time.Duration

	DefaultKeyCredits      int
	DefaultRateLimitMax    int
	DefaultRateLimitWindow time.Duration
}

type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file found")
	}
}

// Load reads the full configuration. Call LoadEnv first.
func Load() *Config {
	return &Config{
		Port: GetEnv("PORT", "3000"),
		Env:  GetEnv("ENV", "development"),
		DB: DBConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "lumepay"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		JWTSecret:              GetEnv("JWT_SECRET", "lumepay-dev-secret"),
		CORSOrigins:            GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		VerificationURL:        strings.TrimRight(GetEnv("VERIFICATION_SERVICE_URL", "http://localhost:8000"), "/"),
		VerificationTimeout:    GetDurationEnv("VERIFICATION_TIMEOUT", 60*time.Second),
		WebhookTimeout:         GetDurationEnv("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookWorkers:         GetIntEnv("WEBHOOK_WORKERS", 4),
		WebhookQueueSize:       GetIntEnv("WEBHOOK_QUEUE_SIZE", 256),
		IntentTTL:              GetDurationEnv("INTENT_TTL", 30*time.Minute),
		SettingsCacheTTL:       GetDurationEnv("SETTINGS_CACHE_TTL", 5*time.Minute),
		DefaultKeyCredits:      GetIntEnv("DEFAULT_KEY_CREDITS", 100),
		DefaultRateLimitMax:    GetIntEnv("DEFAULT_RATE_LIMIT_MAX", 1000),
		DefaultRateLimitWindow: GetDurationEnv("DEFAULT_RATE_LIMIT_WINDOW", 24*time.Hour),
	}
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv accepts Go duration strings ("30m") or whole seconds.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
