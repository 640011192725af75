package config

import "time"

type ServiceConfig struct {
	Name                string         `mapstructure:"name"`
	Environment         string         `mapstructure:"environment" validate:"oneof=development staging production test"`
	Version             string         `mapstructure:"version"`
	ClientURL           string         `mapstructure:"client_url"`
	StripeSecretKey     string         `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string         `mapstructure:"stripe_webhook_secret"`
	StripeTimeout       time.Duration  `mapstructure:"stripe_timeout" validate:"gt=0"`
	StripeMaxRetries    int64          `mapstructure:"stripe_max_retries" validate:"gte=0"`
	RequestTimeout      time.Duration  `mapstructure:"request_timeout" validate:"gt=0"`
	AdminAPIKey         string         `mapstructure:"admin_api_key"`
	PlansPath           string         `mapstructure:"plans_path"`
	Supabase            SupabaseConfig `mapstructure:"supabase"`
}

type SupabaseConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	ProjectURL string `mapstructure:"project_url" validate:"omitempty,url"`
	// APIKey is the service-role key used for the admin users API.
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}
