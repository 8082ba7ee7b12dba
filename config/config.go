package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fina4you/entitlement-api/jwks"
	"github.com/fina4you/entitlement-api/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Identity      IdentityConfig
	Stripe        StripeConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int           `validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	// AuthSuccessRedirect is the app deep link served by GET /auth/success.
	AuthSuccessRedirect string `validate:"required"`
}

// IdentityConfig holds the identity provider settings used for token verification
type IdentityConfig struct {
	Domain            string        `validate:"required"`
	Audience          string        `validate:"required"`
	CustomerIDClaim   string        `validate:"required"`
	KeySetCacheTTL    time.Duration `validate:"gt=0"`
	KeySetPerMinute   int           `validate:"gt=0"`
	KeySetHTTPTimeout time.Duration `validate:"gt=0"`
	ClockSkew         time.Duration `validate:"gte=0"`
}

// StripeConfig holds payment provider configuration
type StripeConfig struct {
	SecretKey           string        `validate:"required"`
	PriceID             string        `validate:"required"`
	SuccessURL          string        `validate:"required,url"`
	CancelURL           string        `validate:"required,url"`
	PaymentMethodTypes  []string      `validate:"min=1"`
	ExpandPaymentIntent bool
	RequestTimeout      time.Duration `validate:"gt=0"`
	// BaseURL overrides the API endpoint; empty means the SDK default.
	BaseURL string
}

// CORSConfig holds the browser origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"required"`
	LogFormat      string `validate:"oneof=json text"`
	MetricsEnabled bool
}

// envFile mirrors the JSON settings file deployed next to the binary.
type envFile struct {
	Auth0Domain     string `json:"auth0Domain"`
	APIIdentifier   string `json:"apiIdentifier"`
	StripeSecretKey string `json:"stripeSecretKey"`
}

const (
	defaultCustomerIDClaim = "http://localhost:3000/stripe_customer_id"
	defaultPriceID         = "price_1SB7pMDMCN5y7etQMEiR5qO8"
	defaultRedirectURL     = "https://api.fina4you.de/auth/success"
	defaultAppRedirect     = "finanz-navigator://auth/success"
	defaultCORSOrigins     = "https://localhost:5173,http://localhost:5173,http://localhost:5174"
)

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	file, err := loadEnvFile(getEnv("ENV_VARIABLES_FILE", "env-variables.json"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:                getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                getEnvAsInt("PORT", 3000),
			ReadTimeout:         getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:        getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout:     getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AuthSuccessRedirect: getEnv("AUTH_SUCCESS_REDIRECT", defaultAppRedirect),
		},
		Identity: IdentityConfig{
			Domain:            firstNonEmpty(file.Auth0Domain, getEnv("AUTH0_DOMAIN", "")),
			Audience:          firstNonEmpty(file.APIIdentifier, getEnv("AUTH0_AUDIENCE", "")),
			CustomerIDClaim:   getEnv("CUSTOMER_ID_CLAIM", defaultCustomerIDClaim),
			KeySetCacheTTL:    getEnvAsDuration("JWKS_CACHE_TTL", 10*time.Minute),
			KeySetPerMinute:   getEnvAsInt("JWKS_REQUESTS_PER_MINUTE", 5),
			KeySetHTTPTimeout: getEnvAsDuration("JWKS_HTTP_TIMEOUT", 10*time.Second),
			ClockSkew:         getEnvAsDuration("TOKEN_CLOCK_SKEW", 0),
		},
		Stripe: StripeConfig{
			SecretKey:           firstNonEmpty(file.StripeSecretKey, getEnv("STRIPE_SECRET_KEY", "")),
			PriceID:             getEnv("STRIPE_PRICE_ID", defaultPriceID),
			SuccessURL:          getEnv("STRIPE_SUCCESS_URL", defaultRedirectURL),
			CancelURL:           getEnv("STRIPE_CANCEL_URL", defaultRedirectURL),
			PaymentMethodTypes:  getEnvAsSlice("STRIPE_PAYMENT_METHOD_TYPES", "card"),
			ExpandPaymentIntent: getEnvAsBool("STRIPE_EXPAND_PAYMENT_INTENT", true),
			RequestTimeout:      getEnvAsDuration("STRIPE_REQUEST_TIMEOUT", 15*time.Second),
			BaseURL:             getEnv("STRIPE_API_BASE_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Stripe.SecretKey == "" {
		return errors.New("missing Stripe secret key: set STRIPE_SECRET_KEY or stripeSecretKey")
	}
	if c.Identity.Domain == "" {
		return errors.New("identity domain is required: set AUTH0_DOMAIN or auth0Domain")
	}
	if c.Identity.Audience == "" {
		return errors.New("API audience is required: set AUTH0_AUDIENCE or apiIdentifier")
	}

	for _, section := range []interface{}{&c.Server, &c.Identity, &c.Stripe, &c.Observability} {
		if err := utils.ValidateStruct(section); err != nil {
			return err
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KeySetURL returns the identity provider's well-known JWKS endpoint
func (c *IdentityConfig) KeySetURL() string {
	return jwks.URLForDomain(c.Domain)
}

// Expand returns the expansion paths requested when listing subscriptions
func (c *StripeConfig) Expand() []string {
	if !c.ExpandPaymentIntent {
		return nil
	}
	return []string{"data.latest_invoice.payment_intent"}
}

// KeyPrefix returns a loggable prefix of the secret key
func (c *StripeConfig) KeyPrefix() string {
	if len(c.SecretKey) <= 8 {
		return "***"
	}
	return c.SecretKey[:8] + "..."
}

// loadEnvFile reads the optional JSON settings file. A missing file is not an error.
func loadEnvFile(path string) (envFile, error) {
	var f envFile
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return f, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Helper functions

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
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
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated list, dropping blanks
func getEnvAsSlice(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
