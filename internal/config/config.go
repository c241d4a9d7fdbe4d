package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full application configuration surface. It is loaded once at
// startup and handed to constructors; nothing reads the environment later.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

// DatabaseConfig holds either a full DSN or its parts.
type DatabaseConfig struct {
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// RedisConfig enables the distributed item lock when URL is set.
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

// KafkaConfig enables the ledger event stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level       string
	Environment string
}

// SeedConfig describes the admin account created on first start.
type SeedConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// IsDevelopment reports whether logs should be human readable.
func (c LogConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port,
	)
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// A missing .env is fine when the environment is set directly.
		_ = godotenv.Load()
	}

	requestTimeout, err := getDuration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getDuration("LOCK_TTL", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("PORT", "3000"),
			RequestTimeout: requestTimeout,
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getenvWithDefault("DB_HOST", "localhost"),
			User:     getenvWithDefault("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getenvWithDefault("DB_NAME", "inventory"),
			Port:     getenvWithDefault("DB_PORT", "5432"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  tokenTTL,
		},
		Redis: RedisConfig{
			URL:     os.Getenv("REDIS_URL"),
			LockTTL: lockTTL,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenvWithDefault("KAFKA_TOPIC", "inventory-ledger"),
		},
		Log: LogConfig{
			Level:       getenvWithDefault("LOG_LEVEL", "info"),
			Environment: getenvWithDefault("ENVIRONMENT", "development"),
		},
		Seed: SeedConfig{
			AdminUsername: getenvWithDefault("ADMIN_USERNAME", "admin"),
			AdminEmail:    getenvWithDefault("ADMIN_EMAIL", "admin@example.com"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.Auth.JWTSecret == "" {
		if c.Log.IsDevelopment() {
			c.Auth.JWTSecret = "dev-secret-change-me"
		} else {
			return errors.New("JWT_SECRET must be provided outside development")
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC must be provided when KAFKA_BROKERS is set")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
