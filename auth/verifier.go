// Package auth verifies RS256 bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fina4you/entitlement-api/internal/observability"
)

const signingAlgorithm = "RS256"

// KeyResolver supplies the public key for a key identifier
type KeyResolver interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Config holds configuration for Verifier
type Config struct {
	// Domain is the identity domain; the expected issuer is https://<Domain>/.
	Domain          string
	Audience        string
	CustomerIDClaim string
	// ClockSkew is tolerated on exp and nbf.
	ClockSkew time.Duration
	Keys      KeyResolver
	Metrics   *observability.Metrics
}

// Verifier runs the ordered verification gates over a raw token
type Verifier struct {
	issuer          string
	audience        string
	customerIDClaim string
	skew            time.Duration
	keys            KeyResolver
	metrics         *observability.Metrics
	now             func() time.Time

	unverified *jwt.Parser
	verified   *jwt.Parser
}

// NewVerifier creates a token verifier
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		issuer:          "https://" + cfg.Domain + "/",
		audience:        cfg.Audience,
		customerIDClaim: cfg.CustomerIDClaim,
		skew:            cfg.ClockSkew,
		keys:            cfg.Keys,
		metrics:         cfg.Metrics,
		now:             time.Now,
		unverified:      jwt.NewParser(),
		// Registered claims are checked below, one gate at a time.
		verified: jwt.NewParser(
			jwt.WithValidMethods([]string{signingAlgorithm}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Issuer returns the exact issuer value accepted by the verifier
func (v *Verifier) Issuer() string {
	return v.issuer
}

// Verify validates raw and returns its claims. The first failing gate
// determines the returned error.
func (v *Verifier) Verify(ctx context.Context, raw string) (*VerifiedClaims, error) {
	claims, err := v.verify(ctx, raw)
	v.metrics.TokenVerification(FailureReason(err))
	return claims, err
}

func (v *Verifier) verify(ctx context.Context, raw string) (*VerifiedClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidTokenFormat)
	}

	header, _, err := v.unverified.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	}

	if alg, _ := header.Header["alg"].(string); alg != signingAlgorithm {
		return nil, fmt.Errorf("%w: algorithm %q not accepted", ErrInvalidSignature, alg)
	}

	kid, _ := header.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: kid header not found", ErrKeyResolution)
	}

	key, err := v.keys.PublicKey(ctx, kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyResolution, err)
	}

	mc := jwt.MapClaims{}
	if _, err := v.verified.ParseWithClaims(raw, mc, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	aud, err := mc.GetAudience()
	if err != nil || !containsAudience(aud, v.audience) {
		return nil, ErrAudienceMismatch
	}

	iss, err := mc.GetIssuer()
	if err != nil || iss != v.issuer {
		return nil, fmt.Errorf("%w: got %q", ErrIssuerMismatch, iss)
	}

	now := v.now()

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: no usable exp claim", ErrTokenExpired)
	}
	if !now.Before(exp.Add(v.skew)) {
		return nil, ErrTokenExpired
	}

	if nbf, err := mc.GetNotBefore(); err == nil && nbf != nil && now.Add(v.skew).Before(nbf.Time) {
		return nil, ErrTokenNotYetValid
	}

	return v.buildClaims(mc, aud, iss, exp.Time), nil
}

func (v *Verifier) buildClaims(mc jwt.MapClaims, aud jwt.ClaimStrings, iss string, exp time.Time) *VerifiedClaims {
	out := &VerifiedClaims{
		Issuer:    iss,
		Audience:  []string(aud),
		ExpiresAt: exp,
		Raw:       map[string]any(mc),
	}
	out.Subject, _ = mc.GetSubject()
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if id, ok := mc[v.customerIDClaim].(string); ok && id != "" {
		out.CustomerID = &id
	}
	return out
}

func containsAudience(audiences jwt.ClaimStrings, want string) bool {
	for _, aud := range audiences {
		if aud == want {
			return true
		}
	}
	return false
}
