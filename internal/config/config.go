package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// OperatingTimezone is the single fixed timezone every date string is
	// normalized against. All persisted dates are start-of-day in this zone.
	OperatingTimezone string
	// SlotStepMinutes is the slot grid granularity.
	SlotStepMinutes int
	// SlotRefreshDelay is the bounded delay between a slot mutation and the
	// authoritative refetch that replaces the optimistic view.
	SlotRefreshDelay time.Duration
	// ViewCacheTTL bounds staleness of cached calendar views when an
	// invalidation is missed.
	ViewCacheTTL time.Duration

	// MutationRatePerSecond throttles the toggle endpoints per client IP.
	// Zero disables the limiter.
	MutationRatePerSecond float64
	MutationBurst         int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		OperatingTimezone:  getEnv("OPERATING_TZ", "America/Fortaleza"),
		SlotStepMinutes:    getEnvAsInt("SLOT_STEP_MINUTES", 30),
		SlotRefreshDelay:   getEnvAsDuration("SLOT_REFRESH_DELAY", 50*time.Millisecond),
		ViewCacheTTL:       getEnvAsDuration("VIEW_CACHE_TTL", 5*time.Minute),

		MutationRatePerSecond: getEnvAsFloat("MUTATION_RATE_PER_SEC", 5),
		MutationBurst:         getEnvAsInt("MUTATION_BURST", 10),
	}
}

// Location resolves the operating timezone, falling back to UTC when the
// configured name cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.OperatingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
