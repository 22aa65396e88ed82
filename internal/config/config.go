package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	StoreDriver string // "mongo" (default) or "memory"
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis (asynq broker + rate limiting)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// JWT access tokens are issued by the login service; we only verify them.
	// With TokenRevocation on, a token is accepted only while its jti is in redis.
	AccessSecret    string
	TokenRevocation bool

	// Gemini
	GeminiAPIKey  string
	GeminiModel   string
	AIMaxAttempts int
	AIRateRPM     int
	// RegenerateDailyLimit caps on-demand caption regenerations per client
	// per day; 0 disables the cap.
	RegenerateDailyLimit int

	// Instagram Graph API
	GraphAPIBase       string
	GraphAPIVersion    string
	PublishSettleDelay time.Duration

	// Media
	PublicBaseURL  string
	MediaURLPrefix string
	FileStorageDir string
	MaxUploadSize  int64

	// Scheduling
	Timezone           string
	HeartbeatInterval  time.Duration
	HeartbeatBatchSize int
	WorkerConcurrency  int

	RateLimitReqs   int
	RateLimitWindow int

	// OpenTelemetry
	OTelEnabled  bool
	OTelEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/autopost"),
		DBName:      getEnv("DB_NAME", "autopost"),
		StoreDriver: getEnv("STORE_DRIVER", "mongo"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AccessSecret:    getEnv("ACCESS_SECRET", ""),
		TokenRevocation: getEnvBool("TOKEN_REVOCATION", false),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AIMaxAttempts: getEnvInt("AI_MAX_ATTEMPTS", 2),
		AIRateRPM:     getEnvInt("AI_RATE_RPM", 10),

		RegenerateDailyLimit: getEnvInt("REGENERATE_DAILY_LIMIT", 50),

		GraphAPIBase:       getEnv("GRAPH_API_BASE", "https://graph.facebook.com"),
		GraphAPIVersion:    getEnv("GRAPH_API_VERSION", "v21.0"),
		PublishSettleDelay: getEnvDuration("PUBLISH_SETTLE_DELAY", 15*time.Second),

		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		MediaURLPrefix: getEnv("MEDIA_URL_PREFIX", "/media/"),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		MaxUploadSize:  getEnvInt64("MAX_UPLOAD_SIZE", 10485760), // 10MB

		Timezone:           getEnv("TIMEZONE", "UTC"),
		HeartbeatInterval:  getEnvDuration("HEARTBEAT_INTERVAL", time.Minute),
		HeartbeatBatchSize: getEnvInt("HEARTBEAT_BATCH_SIZE", 100),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 10),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_ENDPOINT", "localhost:4317"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("ACCESS_SECRET is required - set it in .env file")
	}
	if len(c.AccessSecret) < 32 {
		return fmt.Errorf("ACCESS_SECRET must be at least 32 characters")
	}
	if c.StoreDriver != "mongo" && c.StoreDriver != "memory" {
		return fmt.Errorf("STORE_DRIVER must be mongo or memory, got %q", c.StoreDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %v", c.Timezone, err)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive")
	}
	if c.AIMaxAttempts < 1 {
		c.AIMaxAttempts = 1
	}
	if !strings.HasPrefix(c.MediaURLPrefix, "/") {
		c.MediaURLPrefix = "/" + c.MediaURLPrefix
	}
	if !strings.HasSuffix(c.MediaURLPrefix, "/") {
		c.MediaURLPrefix += "/"
	}
	return nil
}

// Location returns the configured scheduling time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RequireGemini is checked by the worker, which is the only process that
// calls Gemini outside of the regenerate action.
func (c *Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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
