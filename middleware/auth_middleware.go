package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/auth"
	"github.com/fina4you/entitlement-api/utils"
)

// unauthorizedMessage is returned for every authentication failure so the
// response never reveals which check rejected the request.
const unauthorizedMessage = "Invalid or missing authorization"

// TokenVerifier defines the interface for verifying bearer tokens
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.VerifiedClaims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// RequireAuth is a middleware that requires a valid bearer token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token, ok := extractBearerToken(r)
		if !ok {
			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.String("reason", "missing_bearer_token"))
			_ = utils.WriteUnauthorized(w, unauthorizedMessage)
			return
		}

		claims, err := m.verifier.Verify(ctx, token)
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.String("reason", auth.FailureReason(err)),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, unauthorizedMessage)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.Bool("has_payment_customer", claims.CustomerID != nil))

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
