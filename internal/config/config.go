package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	BindAddr string
	Port     string

	AuthSecret string
	TokenTTL   time.Duration

	OTLPEndpoint string

	DBType            string
	DBURL             string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	SnowflakeNode int64

	RateLimit RateLimitConfig

	SeedDemo bool
}

// RateLimitConfig controls the Redis-backed token bucket in front of the
// auth endpoints. When disabled or unconfigured, requests pass untouched.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AuthRate      float64
	AuthBurst     int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "ledgerly"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		BindAddr: getenv("BIND_ADDR", ""),
		Port:     getenv("PORT", "8080"),

		AuthSecret: strings.TrimSpace(getenv("AUTH_SECRET", "")),
		TokenTTL:   getenvDuration("TOKEN_TTL", 24*time.Hour),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBURL:             strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "ledgerly"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("CONNECTION_POOL_MAX", 25),
		DBConnMaxLifetime: getenvDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
		DBConnMaxIdleTime: getenvDuration("DATABASE_CONN_MAX_IDLE_TIME", 10*time.Minute),

		SnowflakeNode: getenvInt64("SNOWFLAKE_NODE", 1),

		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("REDIS_DB", 0),
			AuthRate:      getenvFloat("RATE_LIMIT_AUTH_RATE", 1),
			AuthBurst:     getenvInt("RATE_LIMIT_AUTH_BURST", 10),
		},

		SeedDemo: getenvBool("SEED_DEMO", false),
	}

	return cfg
}

// Addr returns the listen address, preferring BIND_ADDR over PORT.
func (c Config) Addr() string {
	if addr := strings.TrimSpace(c.BindAddr); addr != "" {
		return addr
	}
	return ":" + strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return def
}
