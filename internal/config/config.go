package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the restaurant system.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Database DatabaseConfig `koanf:"database"`
	RabbitMQ RabbitMQConfig `koanf:"rabbitmq"`
	Redis    RedisConfig    `koanf:"redis"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Orders   OrdersConfig   `koanf:"orders"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Name     string `koanf:"name"`
	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration.
type RabbitMQConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
}

// RedisConfig holds the idempotency store connection settings.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	IdemTTL  time.Duration `koanf:"idempotency_ttl"`
}

// GatewayConfig holds the payment gateway client settings.
type GatewayConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// OrdersConfig holds order-core behavior knobs.
type OrdersConfig struct {
	// EnforceTransitions rejects status changes whose predecessor state
	// is not a legal source for the target state.
	EnforceTransitions bool          `koanf:"enforce_transitions"`
	MaxConcurrent      int           `koanf:"max_concurrent"`
	SideEffectTimeout  time.Duration `koanf:"side_effect_timeout"`
}

// Load reads configuration from a YAML file, then overlays environment
// variables with the RESTAURANT_ prefix (nested keys joined with __),
// e.g. RESTAURANT_DATABASE__PASSWORD.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	if err := k.Load(env.Provider("RESTAURANT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "RESTAURANT_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	cfg := &Config{}
	cfg.applyDefaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.App.Name = "restaurant-system"
	c.App.LogLevel = "info"
	c.Redis.IdemTTL = 24 * time.Hour
	c.Gateway.Timeout = 10 * time.Second
	c.Orders.MaxConcurrent = 50
	c.Orders.SideEffectTimeout = 2 * time.Second
}

// Validate checks that the required connection settings are present.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.Database == "" {
		return fmt.Errorf("database.host and database.database are required")
	}
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq.host is required")
	}
	if c.Orders.MaxConcurrent <= 0 {
		return fmt.Errorf("orders.max_concurrent must be positive")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
