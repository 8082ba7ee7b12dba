package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/services"
	"github.com/fina4you/entitlement-api/utils"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	errors.As(err, &domainErr)

	var writeErr error
	switch {
	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, "")

	case services.IsUnlinkedError(err):
		writeErr = utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse{
			Error:   "no_payment_customer",
			Message: domainErr.Message,
		})

	case services.IsExternalError(err):
		// The provider's message is user-facing and passed through as the
		// whole body: {"error": "<message>"}.
		writeErr = utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse{
			Error: domainErr.Message,
		})

	case services.IsTimeoutError(err):
		writeErr = utils.WriteGatewayTimeout(w, domainErr.Message)

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}

	if domainErr != nil {
		logger.Debug("handled service error",
			zap.String("type", string(domainErr.Type)),
			zap.String("message", domainErr.Message))
	}
}
