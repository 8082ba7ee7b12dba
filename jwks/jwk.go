package jwks

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// KeySet represents the JSON Web Key Set document
type KeySet struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string   `json:"kid"`
	Kty string   `json:"kty"`
	Alg string   `json:"alg"`
	Use string   `json:"use"`
	N   string   `json:"n"`
	E   string   `json:"e"`
	X5c []string `json:"x5c"`
}

// usableForSignatures reports whether the key can verify RS256 signatures
func (k *JWK) usableForSignatures() bool {
	if k.Kid == "" || k.Kty != "RSA" {
		return false
	}
	if k.Use != "" && k.Use != "sig" {
		return false
	}
	return k.Alg == "" || k.Alg == "RS256"
}

// RSAPublicKey converts the JWK into an RSA public key. The modulus and
// exponent are preferred; the first x5c certificate is the fallback.
func (k *JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.N != "" && k.E != "" {
		return rsaFromModulus(k.N, k.E)
	}
	if len(k.X5c) > 0 {
		return rsaFromCertificate(k.X5c[0])
	}
	return nil, errors.New("jwk has neither modulus nor certificate chain")
}

func rsaFromModulus(nEnc, eEnc string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	// Exponents wider than 32 bits are rejected before conversion.
	e := new(big.Int).SetBytes(eBytes)
	if e.BitLen() > 31 || e.Int64() < 3 || len(nBytes) == 0 {
		return nil, errors.New("invalid RSA parameters")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

func rsaFromCertificate(der64 string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(der64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode x5c: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse x5c certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("x5c certificate does not carry an RSA key")
	}
	return pub, nil
}
