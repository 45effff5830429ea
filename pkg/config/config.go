package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Cache    CacheConfig
	Funnel   FunnelConfig
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // comma-separated list of allowed origins
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// NATSConfig holds NATS event bus configuration.
type NATSConfig struct {
	URL        string
	StreamName string
	Enabled    bool
}

// CacheConfig holds the in-memory analytics cache tuning.
type CacheConfig struct {
	DefaultTTLSeconds    int
	CleanupIntervalHours int
}

// FunnelConfig holds the synthetic conversion funnel stage multipliers.
// These are assumed drop-off ratios, not measured telemetry; they are
// configuration precisely because there is no visitor tracking to derive
// them from.
type FunnelConfig struct {
	VisitorMultiplier   float64
	VisitMultiplier     float64
	SearchMultiplier    float64
	SelectionMultiplier float64
	InitiatedMultiplier float64
}

// Load loads configuration from environment variables.
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "busticketing"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		NATS: NATSConfig{
			URL:        getEnv("NATS_URL", "nats://localhost:4222"),
			StreamName: getEnv("NATS_STREAM", "TICKETING"),
			Enabled:    getEnvAsBool("NATS_ENABLED", false),
		},
		Cache: CacheConfig{
			DefaultTTLSeconds:    getEnvAsInt("CACHE_DEFAULT_TTL_SECONDS", 300),
			CleanupIntervalHours: getEnvAsInt("CACHE_CLEANUP_INTERVAL_HOURS", 1),
		},
		Funnel: FunnelConfig{
			VisitorMultiplier:   getEnvAsFloat("FUNNEL_VISITOR_MULTIPLIER", 2.5),
			VisitMultiplier:     getEnvAsFloat("FUNNEL_VISIT_MULTIPLIER", 3.5),
			SearchMultiplier:    getEnvAsFloat("FUNNEL_SEARCH_MULTIPLIER", 2.5),
			SelectionMultiplier: getEnvAsFloat("FUNNEL_SELECTION_MULTIPLIER", 1.5),
			InitiatedMultiplier: getEnvAsFloat("FUNNEL_INITIATED_MULTIPLIER", 1.2),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// DefaultTTL returns the configured cache default TTL.
func (c CacheConfig) DefaultTTL() time.Duration {
	if c.DefaultTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// CleanupInterval returns the configured background sweep interval.
func (c CacheConfig) CleanupInterval() time.Duration {
	if c.CleanupIntervalHours <= 0 {
		return time.Hour
	}
	return time.Duration(c.CleanupIntervalHours) * time.Hour
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
