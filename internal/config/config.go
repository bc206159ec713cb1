package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	GRPCAddr string
	HTTPAddr string

	Store       string
	DBConn      string
	LockTimeout time.Duration

	LogLevel  string
	JWTSecret string
	TokenTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	NotifyFrom   string
	NotifyTo     []string

	ExpirySweepSchedule string

	AdminName     string
	AdminPassword string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		GRPCAddr:            getEnv("GRPC_ADDR", ":50051"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		Store:               strings.ToLower(getEnv("STORE", StorePostgres)),
		DBConn:              getEnv("DB_CONN_STR", "host=localhost port=5432 user=postgres password=postgres dbname=bank sslmode=disable"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "bank.card-events"),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		NotifyFrom:          getEnv("NOTIFY_FROM", "bank@localhost"),
		NotifyTo:            splitList(getEnv("NOTIFY_TO", "")),
		ExpirySweepSchedule: getEnv("EXPIRY_SWEEP_SCHEDULE", "@daily"),
		AdminName:           getEnv("ADMIN_NAME", "admin"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
	}

	var err error
	if cfg.LockTimeout, err = getDuration("LOCK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and consistent
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Store {
	case StorePostgres:
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN_STR is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.SMTPHost != "" && len(c.NotifyTo) == 0 {
		return fmt.Errorf("NOTIFY_TO is required when SMTP_HOST is set")
	}
	return nil
}

// NotificationsEnabled reports whether card-blocked emails should be sent
func (c *Config) NotificationsEnabled() bool {
	return c.SMTPHost != ""
}

// EventsEnabled reports whether events should be published to Kafka
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultVal int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
