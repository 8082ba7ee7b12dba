package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeConfig holds configuration for StripeProvider
type StripeConfig struct {
	SecretKey string
	// BaseURL overrides the API endpoint; empty means api.stripe.com.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// StripeProvider implements PaymentProvider on the Stripe API
type StripeProvider struct {
	sc *client.API
}

// NewStripeProvider builds a Stripe client with network retries disabled
// and SDK logging routed through zap.
func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		LeveledLogger:     cfg.Logger.Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &StripeProvider{sc: sc}
}

// CreateCheckoutSession opens a Checkout Session
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(req.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(req.Quantity),
			},
		},
		Mode:       stripe.String(req.Mode),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if len(req.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(req.PaymentMethodTypes)
	}

	sess, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, translateStripeError(err)
	}

	out := &CheckoutSession{ID: sess.ID, URL: sess.URL}
	if sess.LastResponse != nil && len(sess.LastResponse.RawJSON) > 0 {
		out.Raw = json.RawMessage(sess.LastResponse.RawJSON)
		return out, nil
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return out, nil
}

// ListSubscriptions returns every subscription of the customer regardless of status
func (p *StripeProvider) ListSubscriptions(ctx context.Context, customerID string, expand []string) ([]Subscription, error) {
	params := &stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(customerID),
		Status:     stripe.String("all"),
	}
	for _, path := range expand {
		params.AddExpand(path)
	}

	var subs []Subscription
	it := p.sc.Subscriptions.List(params)
	for it.Next() {
		s := it.Subscription()
		subs = append(subs, Subscription{ID: s.ID, Status: string(s.Status)})
	}
	if err := it.Err(); err != nil {
		return nil, translateStripeError(err)
	}
	return subs, nil
}

// translateStripeError turns API-reported failures into ProviderError and
// leaves transport errors untouched.
func translateStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &ProviderError{
			Message:    stripeErr.Msg,
			Code:       string(stripeErr.Code),
			HTTPStatus: stripeErr.HTTPStatusCode,
			Err:        err,
		}
	}
	return err
}
