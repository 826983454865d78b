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
	Redis    RedisConfig
	NATS     NATSConfig
	Dispatch DispatchConfig
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	RequestTimeout time.Duration
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

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// NATSConfig holds event bus configuration.
type NATSConfig struct {
	Enabled bool
	URL     string
}

// DispatchConfig holds the dispatch engine knobs.
type DispatchConfig struct {
	MatchInterval        time.Duration
	ClusterRadiusKm      float64
	MaxPoolSize          int
	MatcherBudget        time.Duration
	PendingLimit         int
	FormingPoolMaxAge    time.Duration
	LeaseTTL             time.Duration
	LeaseMaxRetries      int
	LeaseRetryDelay      time.Duration
	SurgeRefreshInterval time.Duration
	LeaseSweepInterval   time.Duration
}

// Load reads configuration from the environment, consulting a .env file
// when present.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ride_pooling"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Dispatch: DispatchConfig{
			MatchInterval:        getEnvDuration("MATCH_INTERVAL", 30*time.Second),
			ClusterRadiusKm:      getEnvFloat("CLUSTER_RADIUS_KM", 5.0),
			MaxPoolSize:          getEnvInt("MAX_POOL_SIZE", 4),
			MatcherBudget:        getEnvDuration("MATCHER_BUDGET", 250*time.Millisecond),
			PendingLimit:         getEnvInt("PENDING_LIMIT", 100),
			FormingPoolMaxAge:    getEnvDuration("FORMING_POOL_MAX_AGE", 10*time.Minute),
			LeaseTTL:             getEnvDuration("LEASE_TTL", 30*time.Second),
			LeaseMaxRetries:      getEnvInt("LEASE_MAX_RETRIES", 3),
			LeaseRetryDelay:      getEnvDuration("LEASE_RETRY_DELAY", 50*time.Millisecond),
			SurgeRefreshInterval: getEnvDuration("SURGE_REFRESH_INTERVAL", time.Minute),
			LeaseSweepInterval:   getEnvDuration("LEASE_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
