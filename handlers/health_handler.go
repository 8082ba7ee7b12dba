package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/jwks"
	"github.com/fina4you/entitlement-api/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// KeyCacheStats reports the signing key cache state
type KeyCacheStats interface {
	Stats() jwks.Stats
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	keys               KeyCacheStats
	providerConfigured bool
	logger             *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(keys KeyCacheStats, providerConfigured bool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		keys:               keys,
		providerConfigured: providerConfigured,
		logger:             logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteJSON(w, http.StatusOK, response)
}

// HandleReadiness handles GET /readyz
// Reports local state only; it never calls the identity or payment provider.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true

	if h.providerConfigured {
		checks["payment_provider"] = "configured"
	} else {
		checks["payment_provider"] = "not_configured"
		ready = false
	}

	switch {
	case h.keys == nil:
		checks["signing_keys"] = "not_initialized"
		ready = false
	case h.keys.Stats().CachedKeys == 0:
		// Keys are fetched lazily on the first authenticated request.
		checks["signing_keys"] = "cold"
	default:
		checks["signing_keys"] = "cached"
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !ready {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
