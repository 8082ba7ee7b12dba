// Package billing mediates between verified identities and the payment provider.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
)

// CheckoutRequest describes a subscription checkout to open for a customer
type CheckoutRequest struct {
	CustomerID         string
	PriceID            string
	Quantity           int64
	Mode               string
	SuccessURL         string
	CancelURL          string
	PaymentMethodTypes []string
}

// CheckoutSession is the provider's session object. Raw is the provider
// document exactly as received and is what callers get back.
type CheckoutSession struct {
	ID  string
	URL string
	Raw json.RawMessage
}

// Subscription is the part of a provider subscription record used for entitlement
type Subscription struct {
	ID     string
	Status string
}

// PaymentProvider is the payment platform as seen by the mediator. Each
// method performs exactly one upstream attempt.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ListSubscriptions(ctx context.Context, customerID string, expand []string) ([]Subscription, error)
}

// ProviderError is a failure reported by the payment provider itself.
// Message is the provider's user-facing text.
type ProviderError struct {
	Message    string
	Code       string
	HTTPStatus int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment provider error (%s, status %d): %s", e.Code, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("payment provider error (status %d): %s", e.HTTPStatus, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
