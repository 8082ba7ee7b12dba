package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/auth"
	"github.com/fina4you/entitlement-api/billing"
	"github.com/fina4you/entitlement-api/config"
	"github.com/fina4you/entitlement-api/internal/observability"
	"github.com/fina4you/entitlement-api/jwks"
	"github.com/fina4you/entitlement-api/middleware"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Identity
	KeySet         *jwks.Cache
	Verifier       *auth.Verifier
	AuthMiddleware *middleware.AuthMiddleware

	// Payments
	PaymentProvider billing.PaymentProvider
	Entitlements    *billing.Service
}

// NewDependencies creates and wires up all application dependencies.
// Nothing here contacts the identity or payment provider; keys are fetched
// on the first authenticated request.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
		logger.Info("metrics enabled")
	}

	deps.initIdentity(cfg)

	if err := deps.initPayments(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize payments: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initIdentity wires the key set cache, the verifier and the auth gate
func (d *Dependencies) initIdentity(cfg *config.Config) {
	d.KeySet = jwks.New(jwks.Config{
		URL:               cfg.Identity.KeySetURL(),
		TTL:               cfg.Identity.KeySetCacheTTL,
		RequestsPerMinute: cfg.Identity.KeySetPerMinute,
		HTTPTimeout:       cfg.Identity.KeySetHTTPTimeout,
		Logger:            d.Logger.Named("jwks"),
		Metrics:           d.Metrics,
	})

	d.Verifier = auth.NewVerifier(auth.Config{
		Domain:          cfg.Identity.Domain,
		Audience:        cfg.Identity.Audience,
		CustomerIDClaim: cfg.Identity.CustomerIDClaim,
		ClockSkew:       cfg.Identity.ClockSkew,
		Keys:            d.KeySet,
		Metrics:         d.Metrics,
	})

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Verifier, d.Logger.Named("auth"))

	d.Logger.Info("token verification initialized",
		zap.String("issuer", d.Verifier.Issuer()),
		zap.String("audience", cfg.Identity.Audience),
		zap.String("key_set_url", cfg.Identity.KeySetURL()),
		zap.Duration("key_set_ttl", cfg.Identity.KeySetCacheTTL))
}

// initPayments wires the Stripe provider and the entitlement mediator
func (d *Dependencies) initPayments(cfg *config.Config) error {
	if cfg.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe secret key is not configured")
	}

	d.PaymentProvider = billing.NewStripeProvider(billing.StripeConfig{
		SecretKey: cfg.Stripe.SecretKey,
		BaseURL:   cfg.Stripe.BaseURL,
		Logger:    d.Logger.Named("stripe"),
	})

	d.Entitlements = billing.NewService(d.PaymentProvider, billing.Config{
		PriceID:            cfg.Stripe.PriceID,
		SuccessURL:         cfg.Stripe.SuccessURL,
		CancelURL:          cfg.Stripe.CancelURL,
		PaymentMethodTypes: cfg.Stripe.PaymentMethodTypes,
		Expand:             cfg.Stripe.Expand(),
		RequestTimeout:     cfg.Stripe.RequestTimeout,
	}, d.Logger.Named("billing"), d.Metrics)

	d.Logger.Info("payment provider initialized",
		zap.String("key", cfg.Stripe.KeyPrefix()),
		zap.String("price_id", cfg.Stripe.PriceID),
		zap.Duration("request_timeout", cfg.Stripe.RequestTimeout))
	return nil
}

// PaymentsConfigured reports whether the mediator has a provider to call
func (d *Dependencies) PaymentsConfigured() bool {
	return d.Entitlements != nil && d.PaymentProvider != nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.KeySet != nil {
		d.KeySet.Invalidate()
	}

	// Sync logger; stderr/stdout sinks report EINVAL on some platforms.
	_ = d.Logger.Sync()

	return nil
}
