package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	pkgconfig "github.com/wekeepgrowing/resume-billing/pkg/config"
)

const (
	serviceName = "billing"
	envPrefix   = "billing"

	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format      string `mapstructure:"format" validate:"oneof=json console"`
	Output      string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	FilePath    string `mapstructure:"file_path"`
	Development bool   `mapstructure:"development"`
}

type RedisConfig struct {
	// Addr empty disables access-change notifications.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

// defaults registers every key so env overrides reach Unmarshal even when
// the YAML file omits them.
var defaults = map[string]interface{}{
	"service.name":                  "resume-billing",
	"service.environment":           EnvironmentDevelopment,
	"service.version":               "dev",
	"service.client_url":            "http://localhost:3000",
	"service.stripe_secret_key":     "",
	"service.stripe_webhook_secret": "",
	"service.stripe_timeout":        10 * time.Second,
	"service.stripe_max_retries":    2,
	"service.request_timeout":       15 * time.Second,
	"service.admin_api_key":         "",
	"service.plans_path":            "./configs/plans.yaml",
	"service.supabase.jwt_secret":   "",
	"service.supabase.project_url":  "",
	"service.supabase.api_key":      "",
	"service.supabase.timeout":      10 * time.Second,

	"database.url":                "",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.name":               "postgres",
	"database.user":               "postgres",
	"database.password":           "",
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  30 * time.Minute,
	"database.conn_max_idle_time": 5 * time.Minute,
	"database.slow_threshold":     200 * time.Millisecond,
	"database.auto_migrate":       true,

	"server.http.host":        "0.0.0.0",
	"server.http.port":        8080,
	"server.grpc.host":        "0.0.0.0",
	"server.grpc.port":        9090,
	"server.allow_origins":    []string{"http://localhost:3000"},
	"server.shutdown_timeout": 10 * time.Second,

	"log.level":       "info",
	"log.format":      "json",
	"log.output":      "stdout",
	"log.file_path":   "",
	"log.development": false,

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,
	"redis.channel":  "billing.access_changed",

	"sentry.dsn":                "",
	"sentry.traces_sample_rate": 0.0,
}

// LoadConfig reads configs/billing.yaml (or CONFIG_PATH) with BILLING_*
// environment overrides and validates the result.
func LoadConfig() (*Config, error) {
	raw, err := pkgconfig.Load(serviceName, envPrefix, defaults)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := raw.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and production requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.IsProduction() {
		var missing []string
		if c.Service.StripeSecretKey == "" {
			missing = append(missing, "service.stripe_secret_key")
		}
		if c.Service.StripeWebhookSecret == "" {
			missing = append(missing, "service.stripe_webhook_secret")
		}
		if c.Service.Supabase.JWTSecret == "" {
			missing = append(missing, "service.supabase.jwt_secret")
		}
		if len(missing) > 0 {
			return fmt.Errorf("invalid config: %s required in production", strings.Join(missing, ", "))
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Service.Environment == EnvironmentProduction
}
