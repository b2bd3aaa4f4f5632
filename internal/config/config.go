package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	azamPaySandboxURL    = "https://sandbox.azampay.co.tz"
	azamPayProductionURL = "https://api.azampay.co.tz"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port         string
	Environment  string
	SecretKey    string
	AllowedHosts []string
	BaseURL      string

	// JWT
	JWTExpirationHours int

	// Database
	DatabaseURL string
	Database    DatabaseConfig

	// Redis (optional)
	RedisURL string

	// Payment gateway
	Payment PaymentConfig

	// Email
	Email EmailConfig

	// SMS
	SMS SMSConfig

	// Storage
	UploadDir string

	// Background worker
	WorkerConcurrency int

	// Sentry
	SentryDSN string
}

// DatabaseConfig holds the discrete DATABASE_* settings used when DATABASE_URL is absent.
type DatabaseConfig struct {
	Name     string
	User     string
	Password string
	Host     string
	Port     string
}

// PaymentConfig configures the mobile-money aggregator.
type PaymentConfig struct {
	Provider      string
	Sandbox       bool
	BaseURL       string
	ClientID      string
	ClientSecret  string
	APIKey        string
	AppName       string
	WebhookURL    string
	WebhookSecret string
}

// EmailConfig covers both Resend and plain SMTP delivery.
type EmailConfig struct {
	ResendAPIKey string
	Host         string
	Port         int
	User         string
	Password     string
	From         string
}

// Configured reports whether any email transport is available.
func (e EmailConfig) Configured() bool {
	return e.ResendAPIKey != "" || e.Host != ""
}

type SMSConfig struct {
	APIURL   string
	APIKey   string
	SenderID string
}

func (s SMSConfig) Configured() bool {
	return s.APIURL != "" && s.APIKey != ""
}

// ConfigurationError lists every required variable that is missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// IsProduction reports whether the process targets production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load reads configuration from environment variables. It never fails on
// missing values; call Validate to enforce requirements.
func Load() *Config {
	env := getEnv("ENVIRONMENT", EnvDevelopment)
	sandbox := getEnvAsBool("PAYMENT_SANDBOX", true)

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        env,
		SecretKey:          getEnv("SECRET_KEY", ""),
		AllowedHosts:       getEnvAsSlice("ALLOWED_HOSTS", []string{"*"}),
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Database: DatabaseConfig{
			Name:     getEnv("DATABASE_NAME", ""),
			User:     getEnv("DATABASE_USER", ""),
			Password: getEnv("DATABASE_PASSWORD", ""),
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
		},
		RedisURL: getEnv("REDIS_URL", ""),
		Payment: PaymentConfig{
			Provider:      getEnv("PAYMENT_PROVIDER", "azampay"),
			Sandbox:       sandbox,
			BaseURL:       getEnv("PAYMENT_BASE_URL", ""),
			ClientID:      getEnv("PAYMENT_CLIENT_ID", ""),
			ClientSecret:  getEnv("PAYMENT_CLIENT_SECRET", ""),
			APIKey:        getEnv("PAYMENT_API_KEY", ""),
			AppName:       getEnv("PAYMENT_APP_NAME", ""),
			WebhookURL:    getEnv("PAYMENT_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			Host:         getEnv("EMAIL_HOST", ""),
			Port:         getEnvAsInt("EMAIL_PORT", 587),
			User:         getEnv("EMAIL_HOST_USER", ""),
			Password:     getEnv("EMAIL_HOST_PASSWORD", ""),
			From:         getEnv("DEFAULT_FROM_EMAIL", "noreply@maisha.co.tz"),
		},
		SMS: SMSConfig{
			APIURL:   getEnv("SMS_API_URL", ""),
			APIKey:   getEnv("SMS_API_KEY", ""),
			SenderID: getEnv("SMS_SENDER_ID", "MAISHA"),
		},
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 4),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
	}

	if cfg.Payment.BaseURL == "" {
		if sandbox {
			cfg.Payment.BaseURL = azamPaySandboxURL
		} else {
			cfg.Payment.BaseURL = azamPayProductionURL
		}
	}
	if cfg.Payment.WebhookURL == "" {
		cfg.Payment.WebhookURL = cfg.BaseURL + "/api/v1/payments/webhook/azam-pay/"
	}
	if cfg.DatabaseURL == "" && cfg.Database.Name != "" {
		cfg.DatabaseURL = cfg.Database.URL()
	}
	if cfg.SecretKey == "" && !cfg.IsProduction() {
		cfg.SecretKey = "dev-secret-change-in-production"
	}

	return cfg
}

// URL composes a postgres connection string.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Validate returns a *ConfigurationError naming every missing variable.
// Outside production only the database is mandatory.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL (or DATABASE_NAME)")
	}
	if c.IsProduction() {
		if c.SecretKey == "" {
			missing = append(missing, "SECRET_KEY")
		}
		if c.Payment.Provider == "azampay" {
			for name, value := range map[string]string{
				"PAYMENT_CLIENT_ID":     c.Payment.ClientID,
				"PAYMENT_CLIENT_SECRET": c.Payment.ClientSecret,
				"PAYMENT_API_KEY":       c.Payment.APIKey,
				"PAYMENT_APP_NAME":      c.Payment.AppName,
			} {
				if value == "" {
					missing = append(missing, name)
				}
			}
			if !c.Payment.Sandbox && c.Payment.WebhookSecret == "" {
				missing = append(missing, "PAYMENT_WEBHOOK_SECRET")
			}
		}
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		missing = append(missing, fmt.Sprintf("ENVIRONMENT (got %q)", c.Environment))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
