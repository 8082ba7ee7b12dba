package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/auth"
	"github.com/fina4you/entitlement-api/internal/observability"
	"github.com/fina4you/entitlement-api/services"
)

// ErrNoPaymentCustomer is returned when the verified identity carries no
// payment customer id. No provider call is made in that case.
var ErrNoPaymentCustomer = services.ErrNoPaymentCustomer

const (
	opCreateCheckout    = "create_checkout_session"
	opListSubscriptions = "list_subscriptions"

	// Used when the provider reports a failure without a message.
	fallbackProviderMessage = "Internal Server Error"
)

// Config holds the fixed checkout parameters and call limits
type Config struct {
	PriceID            string
	SuccessURL         string
	CancelURL          string
	PaymentMethodTypes []string
	// Expand lists provider expansion paths requested with the subscription
	// list. The expanded data is not interpreted.
	Expand         []string
	RequestTimeout time.Duration
}

// SubscriptionStatus is the entitlement answer returned to callers
type SubscriptionStatus struct {
	Active bool `json:"active"`
}

// Service translates a verified identity into payment provider actions
type Service struct {
	provider PaymentProvider
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService creates the entitlement mediator
func NewService(provider PaymentProvider, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Service{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// CreateCheckoutSession opens a subscription checkout for the identity's
// linked customer at the configured price, quantity 1.
func (s *Service) CreateCheckoutSession(ctx context.Context, claims *auth.VerifiedClaims) (*CheckoutSession, error) {
	customerID, err := customerFrom(claims)
	if err != nil {
		return nil, err
	}

	req := CheckoutRequest{
		CustomerID:         customerID,
		PriceID:            s.cfg.PriceID,
		Quantity:           1,
		Mode:               "subscription",
		SuccessURL:         s.cfg.SuccessURL,
		CancelURL:          s.cfg.CancelURL,
		PaymentMethodTypes: s.cfg.PaymentMethodTypes,
	}

	var sess *CheckoutSession
	err = s.call(ctx, opCreateCheckout, customerID, func(ctx context.Context) error {
		var err error
		sess, err = s.provider.CreateCheckoutSession(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout session created",
		zap.String("customer_id", customerID),
		zap.String("session_id", sess.ID),
	)
	return sess, nil
}

// SubscriptionStatus reports whether the identity's customer holds at least
// one active or trialing subscription.
func (s *Service) SubscriptionStatus(ctx context.Context, claims *auth.VerifiedClaims) (*SubscriptionStatus, error) {
	customerID, err := customerFrom(claims)
	if err != nil {
		return nil, err
	}

	var subs []Subscription
	err = s.call(ctx, opListSubscriptions, customerID, func(ctx context.Context) error {
		var err error
		subs, err = s.provider.ListSubscriptions(ctx, customerID, s.cfg.Expand)
		return err
	})
	if err != nil {
		return nil, err
	}

	active := IsActive(subs)
	s.metrics.Entitlement(active)
	s.logger.Debug("subscription status computed",
		zap.String("customer_id", customerID),
		zap.Int("subscriptions", len(subs)),
		zap.Bool("active", active),
	)
	return &SubscriptionStatus{Active: active}, nil
}

// IsActive is true when any subscription is active or trialing
func IsActive(subs []Subscription) bool {
	for _, sub := range subs {
		if sub.Status == "active" || sub.Status == "trialing" {
			return true
		}
	}
	return false
}

func customerFrom(claims *auth.VerifiedClaims) (string, error) {
	if claims == nil {
		return "", services.ErrUnauthorized
	}
	id, ok := claims.PaymentCustomer()
	if !ok {
		return "", ErrNoPaymentCustomer
	}
	return id, nil
}

// call runs one provider attempt under the per-call timeout and maps its
// failure onto the service error taxonomy. Both operations go through here.
func (s *Service) call(ctx context.Context, op, customerID string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	elapsed := time.Since(start)

	if err == nil {
		s.metrics.ProviderCall(op, "success", elapsed)
		return nil
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("customer_id", customerID),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	}

	var provErr *ProviderError
	switch {
	case errors.As(err, &provErr):
		s.metrics.ProviderCall(op, "rejected", elapsed)
		s.logger.Warn("payment provider rejected request", append(fields, zap.String("code", provErr.Code))...)
		message := provErr.Message
		if message == "" {
			message = fallbackProviderMessage
		}
		return services.WrapExternal(message, err)

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		s.metrics.ProviderCall(op, "timeout", elapsed)
		s.logger.Warn("payment provider call timed out", fields...)
		return fmt.Errorf("%w: %w", services.ErrProviderTimeout, err)

	case errors.Is(err, context.Canceled):
		s.metrics.ProviderCall(op, "canceled", elapsed)
		s.logger.Info("payment provider call canceled by caller", fields...)
		return services.NewDomainError(services.ErrorTypeTimeout, "request canceled", err)

	default:
		s.metrics.ProviderCall(op, "error", elapsed)
		s.logger.Error("payment provider call failed", fields...)
		return services.WrapExternal("payment provider unavailable", err)
	}
}
