package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/auth"
	"github.com/fina4you/entitlement-api/billing"
	"github.com/fina4you/entitlement-api/middleware"
	"github.com/fina4you/entitlement-api/services"
	"github.com/fina4you/entitlement-api/utils"
)

// EntitlementService is the mediator as seen by the HTTP layer
type EntitlementService interface {
	CreateCheckoutSession(ctx context.Context, claims *auth.VerifiedClaims) (*billing.CheckoutSession, error)
	SubscriptionStatus(ctx context.Context, claims *auth.VerifiedClaims) (*billing.SubscriptionStatus, error)
}

// BillingHandler handles checkout and entitlement requests
type BillingHandler struct {
	service EntitlementService
	logger  *zap.Logger
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(service EntitlementService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreateCheckoutSession handles POST /stripe
// Responds with the provider's session object as received.
func (h *BillingHandler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(zap.String("request_id", middleware.GetRequestIDFromContext(ctx)))

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		HandleServiceError(w, services.ErrUnauthorized, logger)
		return
	}

	sess, err := h.service.CreateCheckoutSession(ctx, claims)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	utils.NoStore(w)
	if err := utils.WriteRawJSON(w, http.StatusOK, sess.Raw); err != nil {
		logger.Error("failed to write checkout session", zap.Error(err))
	}
}

// HandleSubscriptionStatus handles GET /subscription-status
func (h *BillingHandler) HandleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(zap.String("request_id", middleware.GetRequestIDFromContext(ctx)))

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		HandleServiceError(w, services.ErrUnauthorized, logger)
		return
	}

	status, err := h.service.SubscriptionStatus(ctx, claims)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	utils.NoStore(w)
	if err := utils.WriteJSON(w, http.StatusOK, status); err != nil {
		logger.Error("failed to write subscription status", zap.Error(err))
	}
}
