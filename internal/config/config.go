package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel string

	Provider ProviderConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// ProviderConfig carries the remote hosted-checkout API settings.
type ProviderConfig struct {
	BaseURL        string
	Username       string
	Password       string
	APIVariant     string
	TimeoutSeconds int
	CacheTTLSecs   int

	// TotalTolerance is the allowed gap, in minor units, between the remote
	// session total and the local grand total when confirming an order. The
	// value is flat regardless of the currency's minor-unit scale.
	TotalTolerance int64

	// PushAttemptThreshold is the number of push deliveries for a session
	// with no local order before the reservation is cancelled.
	PushAttemptThreshold int
}

const (
	// APIVariantStandard is the base hosted-checkout API.
	APIVariantStandard = "standard"
	// APIVariantExtended adds recurring orders and mandatory-field toggles.
	APIVariantExtended = "extended"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "kassa"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Provider: ProviderConfig{
			BaseURL:              strings.TrimSpace(getenv("PROVIDER_BASE_URL", "")),
			Username:             strings.TrimSpace(getenv("PROVIDER_USERNAME", "")),
			Password:             strings.TrimSpace(getenv("PROVIDER_PASSWORD", "")),
			APIVariant:           normalizeVariant(getenv("PROVIDER_API_VARIANT", APIVariantStandard)),
			TimeoutSeconds:       getenvInt("PROVIDER_TIMEOUT_SECONDS", 30),
			CacheTTLSecs:         getenvInt("PROVIDER_CACHE_TTL_SECONDS", 60),
			TotalTolerance:       getenvInt64("ORDER_TOTAL_TOLERANCE", 2),
			PushAttemptThreshold: getenvInt("PUSH_ATTEMPT_THRESHOLD", 5),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "kassa"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
	}

	return cfg
}

// SupportsRecurring reports whether the configured API variant accepts the
// recurring flag on session updates.
func (p ProviderConfig) SupportsRecurring() bool {
	return p.APIVariant == APIVariantExtended
}

// SupportsMandatoryFields reports whether the configured API variant accepts
// the mandatory-field design toggles. The merchant flag alone must never send
// them on the standard variant.
func (p ProviderConfig) SupportsMandatoryFields() bool {
	return p.APIVariant == APIVariantExtended
}

func normalizeVariant(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case APIVariantExtended:
		return APIVariantExtended
	case APIVariantStandard, "":
		return APIVariantStandard
	default:
		return value
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
