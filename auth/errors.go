package auth

import "errors"

// Each verification gate fails with its own sentinel. Callers outside this
// package must not expose which one occurred; use FailureReason for logs.
var (
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrKeyResolution      = errors.New("key resolution failed")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrAudienceMismatch   = errors.New("audience mismatch")
	ErrIssuerMismatch     = errors.New("issuer mismatch")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenNotYetValid   = errors.New("token not yet valid")
)

// FailureReason returns a stable label naming the gate that rejected a token
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidTokenFormat):
		return "invalid_token_format"
	case errors.Is(err, ErrKeyResolution):
		return "key_resolution_failed"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, ErrIssuerMismatch):
		return "issuer_mismatch"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenNotYetValid):
		return "token_not_yet_valid"
	default:
		return "unknown"
	}
}
