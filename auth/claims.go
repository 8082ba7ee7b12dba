package auth

import "time"

// VerifiedClaims is the claim set of a token that passed every gate.
type VerifiedClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time

	// CustomerID is the linked payment customer; nil when the identity
	// carries no linkage claim.
	CustomerID *string

	// Raw holds every decoded claim, including ones not mapped above.
	Raw map[string]any
}

// PaymentCustomer returns the linked payment customer id, if any
func (c *VerifiedClaims) PaymentCustomer() (string, bool) {
	if c == nil || c.CustomerID == nil {
		return "", false
	}
	return *c.CustomerID, true
}
