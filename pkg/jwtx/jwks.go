package jwtx

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// JWK represents a public key in JSON Web Key format (RFC 7517). Keycloak
// publishes signing and encryption keys in the same set, so Use matters.
type JWK struct {
	Kty string `json:"kty"`           // key type: "RSA", "EC", "OKP"
	Use string `json:"use,omitempty"` // "sig" or "enc"
	Alg string `json:"alg,omitempty"` // "RS256", "RSA-OAEP", ...
	Kid string `json:"kid,omitempty"`

	// RSA
	N string `json:"n,omitempty"` // modulus (base64url)
	E string `json:"e,omitempty"` // exponent (base64url)

	// EC / OKP, accepted on the wire and ignored
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// SigningKey is a resolved verification key.
type SigningKey struct {
	KID string
	Alg string
	Key *rsa.PublicKey
}

var (
	errSkipKey       = errors.New("jwtx: key not usable for RS256 signatures")
	errNoSigningKeys = errors.New("jwtx: key set has no RS256 signing keys")
)

// NewRSAJWK builds a JWK for an RSA public key.
func NewRSAJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// signingKeys converts the usable entries of a JWKS into SigningKeys keyed by
// kid. Encryption keys, non-RSA keys and keys pinned to another algorithm are
// skipped rather than failing the whole set. A malformed RSA signing key is
// an error: the set cannot be trusted. So is a set left with no usable key
// ({}, null, or only encryption keys); an issuer always publishes one, and
// accepting it would wipe every cached kid.
func (s JWKS) signingKeys() (map[string]SigningKey, error) {
	out := make(map[string]SigningKey, len(s.Keys))
	for _, j := range s.Keys {
		k, err := j.signingKey()
		if errors.Is(err, errSkipKey) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k.KID] = k
	}
	if len(out) == 0 {
		return nil, errNoSigningKeys
	}
	return out, nil
}

func (j JWK) signingKey() (SigningKey, error) {
	if j.Kty != "RSA" || j.Kid == "" {
		return SigningKey{}, errSkipKey
	}
	if j.Use != "" && j.Use != "sig" {
		return SigningKey{}, errSkipKey
	}
	if j.Alg != "" && j.Alg != "RS256" {
		return SigningKey{}, errSkipKey
	}

	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil || len(nb) == 0 {
		return SigningKey{}, fmt.Errorf("jwtx: kid %q: bad modulus", j.Kid)
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil || len(eb) == 0 {
		return SigningKey{}, fmt.Errorf("jwtx: kid %q: bad exponent", j.Kid)
	}
	e := new(big.Int).SetBytes(eb)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return SigningKey{}, fmt.Errorf("jwtx: kid %q: exponent out of range", j.Kid)
	}

	return SigningKey{
		KID: j.Kid,
		Alg: "RS256",
		Key: &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e.Int64())},
	}, nil
}
