package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateInstanceID creates a unique instance ID using hostname and PID
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "mailsense"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	InstanceID  string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// JWT
	JWTSecret string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Mailbox the pipeline scans. Empty selects the most recently
	// connected account.
	GmailAccountEmail string

	// Gmail scan
	ScanMaxPerCategory int
	ScanIntervalMin    int
	ScanTimeoutSec     int
	ScanDebounceSec    int

	// Classifier
	ClassifierBackend    string // huggingface | openai | none
	ClassifierTimeoutSec int
	HFAPIKey             string
	HFModel              string
	HFEndpoint           string
	OpenAIAPIKey         string
	OpenAIModel          string

	// Cache
	PredictionTTLMin int

	// Reports
	ReportTTLDays int

	// CORS
	AllowedOrigins []string

	// Scheduler
	SchedulerEnabled bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		InstanceID:  getEnv("INSTANCE_ID", generateInstanceID()),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "mailsense"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		GmailAccountEmail:  getEnv("GMAIL_ACCOUNT_EMAIL", ""),

		// Gmail scan
		ScanMaxPerCategory: getEnvInt("SCAN_MAX_PER_CATEGORY", 20),
		ScanIntervalMin:    getEnvInt("SCAN_INTERVAL_MIN", 15),
		ScanTimeoutSec:     getEnvInt("SCAN_TIMEOUT_SEC", 300),
		ScanDebounceSec:    getEnvInt("SCAN_DEBOUNCE_SEC", 30),

		// Classifier
		ClassifierBackend:    getEnv("CLASSIFIER_BACKEND", "huggingface"),
		ClassifierTimeoutSec: getEnvInt("CLASSIFIER_TIMEOUT_SEC", 60),
		HFAPIKey:             getEnv("HF_API_KEY", ""),
		HFModel:              getEnv("HF_MODEL", "facebook/bart-large-mnli"),
		HFEndpoint:           getEnv("HF_ENDPOINT", "https://api-inference.huggingface.co"),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		// Cache
		PredictionTTLMin: getEnvInt("PREDICTION_TTL_MIN", 360),

		// Reports
		ReportTTLDays: getEnvInt("REPORT_TTL_DAYS", 30),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		// Scheduler
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", false),
	}

	switch cfg.ClassifierBackend {
	case "huggingface", "openai", "none":
	default:
		return nil, fmt.Errorf("invalid CLASSIFIER_BACKEND %q (want huggingface, openai, or none)", cfg.ClassifierBackend)
	}

	return cfg, nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// ScanTimeout returns the per-run deadline for a full category scan.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutSec) * time.Second
}

// ScanInterval returns the delay between scheduled scans.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMin) * time.Minute
}

// ScanDebounce returns the window during which repeated scan triggers
// are rejected.
func (c *Config) ScanDebounce() time.Duration {
	return time.Duration(c.ScanDebounceSec) * time.Second
}

// ClassifierTimeout returns the per-call deadline for zero-shot requests.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.ClassifierTimeoutSec) * time.Second
}

// PredictionTTL returns the cache lifetime for classifier predictions.
func (c *Config) PredictionTTL() time.Duration {
	return time.Duration(c.PredictionTTLMin) * time.Minute
}

// ReportTTL returns how long archived run reports are retained.
func (c *Config) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLDays) * 24 * time.Hour
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
