package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Billing  BillingConfig
	Xendit   XenditConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// AppConfig holds application configuration
type AppConfig struct {
	Env         string
	LogLevel    string
	MetricsPort int
}

// BillingConfig holds invoicing and renewal settings
type BillingConfig struct {
	Currency           string
	RenewalSchedule    string
	RenewalConcurrency int
	PresetFile         string
	SubmitOrders       bool
}

// XenditConfig holds payment gateway settings
type XenditConfig struct {
	APIKey             string
	Environment        string
	InvoiceDuration    time.Duration
	SuccessRedirectURL string
	FailureRedirectURL string
}

func Load() (*Config, error) {
	// A missing .env is fine: the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "plan_billing"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	metricsPort, err := strconv.Atoi(getEnv("METRICS_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_PORT: %w", err)
	}

	config.App = AppConfig{
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsPort: metricsPort,
	}

	// Billing configuration
	concurrency, err := strconv.Atoi(getEnv("RENEWAL_CONCURRENCY", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RENEWAL_CONCURRENCY: %w", err)
	}
	submitOrders, err := strconv.ParseBool(getEnv("SUBMIT_ORDERS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUBMIT_ORDERS: %w", err)
	}

	config.Billing = BillingConfig{
		Currency:           getEnv("BILLING_CURRENCY", "IDR"),
		RenewalSchedule:    getEnv("RENEWAL_SCHEDULE", "0 1 25 * *"),
		RenewalConcurrency: concurrency,
		PresetFile:         getEnv("PRESET_FILE", ""),
		SubmitOrders:       submitOrders,
	}

	// Xendit configuration
	invoiceDuration, err := time.ParseDuration(getEnv("XENDIT_INVOICE_DURATION", "72h"))
	if err != nil {
		return nil, fmt.Errorf("invalid XENDIT_INVOICE_DURATION: %w", err)
	}

	config.Xendit = XenditConfig{
		APIKey:             getEnv("XENDIT_API_KEY", ""),
		Environment:        getEnv("XENDIT_ENVIRONMENT", "sandbox"),
		InvoiceDuration:    invoiceDuration,
		SuccessRedirectURL: getEnv("XENDIT_SUCCESS_REDIRECT_URL", ""),
		FailureRedirectURL: getEnv("XENDIT_FAILURE_REDIRECT_URL", ""),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if _, err := cron.ParseStandard(c.Billing.RenewalSchedule); err != nil {
		return fmt.Errorf("invalid RENEWAL_SCHEDULE: %w", err)
	}
	if c.Billing.RenewalConcurrency < 1 {
		return fmt.Errorf("RENEWAL_CONCURRENCY must be at least 1")
	}
	if c.Billing.SubmitOrders && c.Xendit.APIKey == "" {
		return fmt.Errorf("XENDIT_API_KEY is required when SUBMIT_ORDERS is enabled")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
