package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("BASE_URL", "https://maisha.example/")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_NAME", "maisha")
	t.Setenv("DATABASE_USER", "app")
	t.Setenv("DATABASE_PASSWORD", "pw")
	t.Setenv("PAYMENT_SANDBOX", "true")
	t.Setenv("PAYMENT_BASE_URL", "")
	t.Setenv("PAYMENT_WEBHOOK_URL", "")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_PORT", "5432")

	cfg := Load()

	assert.Equal(t, "https://maisha.example", cfg.BaseURL)
	assert.Equal(t, "https://maisha.example/api/v1/payments/webhook/azam-pay/", cfg.Payment.WebhookURL)
	assert.Equal(t, azamPaySandboxURL, cfg.Payment.BaseURL)
	assert.Equal(t, "postgres://app:pw@localhost:5432/maisha?sslmode=disable", cfg.DatabaseURL)
	assert.NotEmpty(t, cfg.SecretKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ProductionGatewayURL(t *testing.T) {
	t.Setenv("PAYMENT_SANDBOX", "false")
	t.Setenv("PAYMENT_BASE_URL", "")

	cfg := Load()
	assert.Equal(t, azamPayProductionURL, cfg.Payment.BaseURL)
}

func TestValidate_ProductionRequiresSecrets(t *testing.T) {
	cfg := &Config{
		Environment: EnvProduction,
		DatabaseURL: "postgres://x",
		Payment:     PaymentConfig{Provider: "azampay", Sandbox: false},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Missing, "SECRET_KEY")
	assert.Contains(t, cfgErr.Missing, "PAYMENT_CLIENT_ID")
	assert.Contains(t, cfgErr.Missing, "PAYMENT_WEBHOOK_SECRET")
}

func TestValidate_MissingDatabase(t *testing.T) {
	cfg := &Config{Environment: EnvDevelopment}
	err := cfg.Validate()

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Missing, 1)
}

func TestEmailConfigured(t *testing.T) {
	assert.False(t, EmailConfig{}.Configured())
	assert.True(t, EmailConfig{Host: "smtp.example.com"}.Configured())
	assert.True(t, EmailConfig{ResendAPIKey: "re_123"}.Configured())
}
