package billing

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/auth"
	"github.com/fina4you/entitlement-api/internal/observability"
	"github.com/fina4you/entitlement-api/services"
)

// MockPaymentProvider is a mock implementation of PaymentProvider
type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

func (m *MockPaymentProvider) ListSubscriptions(ctx context.Context, customerID string, expand []string) ([]Subscription, error) {
	args := m.Called(ctx, customerID, expand)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Subscription), args.Error(1)
}

var testExpand = []string{"data.latest_invoice.payment_intent"}

func testConfig() Config {
	return Config{
		PriceID:            "price_1SB7pMDMCN5y7etQMEiR5qO8",
		SuccessURL:         "https://api.fina4you.de/auth/success",
		CancelURL:          "https://api.fina4you.de/auth/cancel",
		PaymentMethodTypes: []string{"card"},
		Expand:             testExpand,
		RequestTimeout:     time.Second,
	}
}

func claimsWithCustomer(id string) *auth.VerifiedClaims {
	return &auth.VerifiedClaims{Subject: "auth0|64f1c2", CustomerID: &id}
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		name string
		subs []Subscription
		want bool
	}{
		{"no subscriptions", nil, false},
		{"empty list", []Subscription{}, false},
		{"canceled", []Subscription{{Status: "canceled"}}, false},
		{"active", []Subscription{{Status: "active"}}, true},
		{"trialing", []Subscription{{Status: "trialing"}}, true},
		{"canceled and trialing", []Subscription{{Status: "canceled"}, {Status: "trialing"}}, true},
		{"only inactive statuses", []Subscription{
			{Status: "past_due"}, {Status: "unpaid"}, {Status: "incomplete"},
			{Status: "incomplete_expired"}, {Status: "paused"},
		}, false},
		{"status match is exact", []Subscription{{Status: "Active"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActive(tt.subs))
		})
	}
}

func TestService_CreateCheckoutSession(t *testing.T) {
	t.Run("creates session with fixed parameters", func(t *testing.T) {
		provider := new(MockPaymentProvider)
		svc := NewService(provider, testConfig(), zap.NewNop(), nil)

		expected := CheckoutRequest{
			CustomerID:         "cus_P1a2b3",
			PriceID:            "price_1SB7pMDMCN5y7etQMEiR5qO8",
			Quantity:           1,
			Mode:               "subscription",
			SuccessURL:         "https://api.fina4you.de/auth/success",
			CancelURL:          "https://api.fina4you.de/auth/cancel",
			PaymentMethodTypes: []string{"card"},
		}
		session := &CheckoutSession{
			ID:  "cs_test_1",
			URL: "https://checkout.stripe.com/c/pay/cs_test_1",
			Raw: []byte(`{"id":"cs_test_1"}`),
		}
		provider.On("CreateCheckoutSession", mock.Anything, expected).Return(session, nil)

		got, err := svc.CreateCheckoutSession(context.Background(), claimsWithCustomer("cus_P1a2b3"))
		require.NoError(t, err)
		assert.Equal(t, session, got)
		provider.AssertExpectations(t)
	})

	t.Run("call carries a deadline", func(t *testing.T) {
		provider := new(MockPaymentProvider)
		svc := NewService(provider, testConfig(), zap.NewNop(), nil)

		provider.On("CreateCheckoutSession", mock.MatchedBy(func(ctx context.Context) bool {
			deadline, ok := ctx.Deadline()
			return ok && time.Until(deadline) <= time.Second
		}), mock.Anything).Return(&CheckoutSession{ID: "cs_test_2"}, nil)

		_, err := svc.CreateCheckoutSession(context.Background(), claimsWithCustomer("cus_P1a2b3"))
		require.NoError(t, err)
		provider.AssertExpectations(t)
	})

	t.Run("missing customer never reaches the provider", func(t *testing.T) {
		provider := new(MockPaymentProvider)
		svc := NewService(provider, testConfig(), zap.NewNop(), nil)

		_, err := svc.CreateCheckoutSession(context.Background(), &auth.VerifiedClaims{Subject: "auth0|x"})
		assert.ErrorIs(t, err, ErrNoPaymentCustomer)
		assert.True(t, services.IsUnlinkedError(err))
		provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("nil claims are unauthorized", func(t *testing.T) {
		provider := new(MockPaymentProvider)
		svc := NewService(provider, testConfig(), zap.NewNop(), nil)

		_, err := svc.CreateCheckoutSession(context.Background(), nil)
		assert.True(t, services.IsUnauthorizedError(err))
		provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})
}

func TestService_SubscriptionStatus(t *testing.T) {
	tests := []struct {
		name string
		subs []Subscription
		want bool
	}{
		{"canceled only", []Subscription{{ID: "sub_1", Status: "canceled"}}, false},
		{"active", []Subscription{{ID: "sub_1", Status: "active"}}, true},
		{"trialing", []Subscription{{ID: "sub_1", Status: "trialing"}}, true},
		{"none", []Subscription{}, false},
		{"mixed", []Subscription{{ID: "sub_1", Status: "canceled"}, {ID: "sub_2", Status: "trialing"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(MockPaymentProvider)
			svc := NewService(provider, testConfig(), zap.NewNop(), observability.NewMetrics())

			provider.On("ListSubscriptions", mock.Anything, "cus_P1a2b3", testExpand).Return(tt.subs, nil)

			status, err := svc.SubscriptionStatus(context.Background(), claimsWithCustomer("cus_P1a2b3"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Active)
			provider.AssertExpectations(t)
		})
	}

	t.Run("expansion can be disabled", func(t *testing.T) {
		provider := new(MockPaymentProvider)
		cfg := testConfig()
		cfg.Expand = nil
		svc := NewService(provider, cfg, zap.NewNop(), nil)

		provider.On("ListSubscriptions", mock.Anything, "cus_P1a2b3", []string(nil)).Return([]Subscription{}, nil)

		_, err := svc.SubscriptionStatus(context.Background(), claimsWithCustomer("cus_P1a2b3"))
		require.NoError(t, err)
		provider.AssertExpectations(t)
	})

	t.Run("missing customer never reaches the provider", func(t *testing.T) {
		provider := new(MockPaymentProvider)
		svc := NewService(provider, testConfig(), zap.NewNop(), nil)

		_, err := svc.SubscriptionStatus(context.Background(), &auth.VerifiedClaims{})
		assert.ErrorIs(t, err, ErrNoPaymentCustomer)
		provider.AssertNotCalled(t, "ListSubscriptions", mock.Anything, mock.Anything, mock.Anything)
	})
}

// Both operations recover provider failures the same way.
func TestService_ProviderFailures(t *testing.T) {
	rejection := &ProviderError{
		Message:    "No such customer: 'cus_gone'",
		Code:       "resource_missing",
		HTTPStatus: 400,
	}

	tests := []struct {
		name        string
		providerErr error
		check       func(t *testing.T, err error)
	}{
		{
			name:        "provider rejection keeps the provider message",
			providerErr: rejection,
			check: func(t *testing.T, err error) {
				require.True(t, services.IsExternalError(err))
				var de *services.DomainError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, "No such customer: 'cus_gone'", de.Message)
			},
		},
		{
			name:        "provider rejection without a message",
			providerErr: &ProviderError{Code: "api_error", HTTPStatus: 400},
			check: func(t *testing.T, err error) {
				require.True(t, services.IsExternalError(err))
				var de *services.DomainError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, "Internal Server Error", de.Message)
			},
		},
		{
			name:        "transport failure",
			providerErr: &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			check: func(t *testing.T, err error) {
				require.True(t, services.IsExternalError(err))
				var de *services.DomainError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, "payment provider unavailable", de.Message)
			},
		},
		{
			name:        "deadline exceeded",
			providerErr: context.DeadlineExceeded,
			check: func(t *testing.T, err error) {
				assert.True(t, services.IsTimeoutError(err))
				assert.ErrorIs(t, err, services.ErrProviderTimeout)
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			},
		},
	}

	for _, tt := range tests {
		t.Run("checkout/"+tt.name, func(t *testing.T) {
			provider := new(MockPaymentProvider)
			svc := NewService(provider, testConfig(), zap.NewNop(), nil)
			provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, tt.providerErr)

			sess, err := svc.CreateCheckoutSession(context.Background(), claimsWithCustomer("cus_gone"))
			assert.Nil(t, sess)
			tt.check(t, err)
			provider.AssertNumberOfCalls(t, "CreateCheckoutSession", 1)
		})

		t.Run("status/"+tt.name, func(t *testing.T) {
			provider := new(MockPaymentProvider)
			svc := NewService(provider, testConfig(), zap.NewNop(), nil)
			provider.On("ListSubscriptions", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.providerErr)

			status, err := svc.SubscriptionStatus(context.Background(), claimsWithCustomer("cus_gone"))
			assert.Nil(t, status)
			tt.check(t, err)
			provider.AssertNumberOfCalls(t, "ListSubscriptions", 1)
		})
	}
}

func TestService_TimeoutIsEnforced(t *testing.T) {
	provider := new(MockPaymentProvider)
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	svc := NewService(provider, cfg, zap.NewNop(), nil)

	provider.On("ListSubscriptions", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	start := time.Now()
	_, err := svc.SubscriptionStatus(context.Background(), claimsWithCustomer("cus_P1a2b3"))
	assert.True(t, services.IsTimeoutError(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(new(MockPaymentProvider), Config{}, nil, nil)
	assert.Equal(t, 15*time.Second, svc.cfg.RequestTimeout)
	assert.NotNil(t, svc.logger)
}
