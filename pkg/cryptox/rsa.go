package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// MinRSABits is the smallest RSA modulus we generate or accept.
const MinRSABits = 2048

// PEMFormat selects the private key encoding.
type PEMFormat int

const (
	// PKCS1 is "RSA PRIVATE KEY", what Keycloak exports.
	PKCS1 PEMFormat = iota
	// PKCS8 is "PRIVATE KEY".
	PKCS8
)

// GenerateRSAKey generates an RSA private key and returns it as PKCS1 PEM.
func GenerateRSAKey(bits int) ([]byte, error) {
	return GenerateRSAKeyAs(bits, PKCS1)
}

// GenerateRSAKeyAs generates an RSA private key in the requested encoding.
func GenerateRSAKeyAs(bits int, format PEMFormat) ([]byte, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}
	return MarshalRSAPrivateKey(key, format)
}

// MarshalRSAPrivateKey PEM-encodes key.
func MarshalRSAPrivateKey(key *rsa.PrivateKey, format PEMFormat) ([]byte, error) {
	switch format {
	case PKCS1:
		return pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}), nil
	case PKCS8:
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
	default:
		return nil, fmt.Errorf("cryptox: unknown PEM format %d", format)
	}
}
