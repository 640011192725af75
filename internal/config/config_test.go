package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "service:\n  name: resume-billing\n"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.Service.StripeTimeout)
	assert.Equal(t, 15*time.Second, cfg.Service.RequestTimeout)
	assert.Equal(t, "billing.access_changed", cfg.Redis.Channel)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "server:\n  http:\n    port: 8081\n"))
	t.Setenv("BILLING_SERVICE_STRIPE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("BILLING_DATABASE_URL", "postgres://u:p@db:5432/postgres")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HTTP.Port)
	assert.Equal(t, "whsec_env", cfg.Service.StripeWebhookSecret)
	assert.Equal(t, "postgres://u:p@db:5432/postgres", cfg.Database.DSN())
}

func TestProductionRequiresWebhookSecret(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, `
service:
  environment: production
  stripe_secret_key: sk_live_x
  supabase:
    jwt_secret: secret
`))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service.stripe_webhook_secret")
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "log:\n  level: verbose\n"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestDSNFromFields(t *testing.T) {
	c := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "pw", Name: "app", SSLMode: "require"}
	assert.Equal(t, "host=localhost port=5432 user=postgres password=pw dbname=app sslmode=require", c.DSN())
}
