package jwtx

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Header is the decoded JOSE header of a compact JWS.
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid,omitempty"`
	Typ string `json:"typ,omitempty"`
}

// ParseStructure checks that token is three base64url segments with a JSON
// object header and payload, and returns the header. It performs no
// cryptographic work and trusts nothing it returns.
func ParseStructure(token string) (Header, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Header{}, newErrorf(KindMalformedToken, "expected 3 segments, got %d", len(parts))
	}

	hb, err := decodeSegment(parts[0])
	if err != nil {
		return Header{}, newError(KindMalformedToken, "header is not base64url", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return Header{}, newError(KindMalformedToken, "header is not a JSON object", err)
	}

	pb, err := decodeSegment(parts[1])
	if err != nil {
		return Header{}, newError(KindMalformedToken, "payload is not base64url", err)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(pb, &payload); err != nil {
		return Header{}, newError(KindMalformedToken, "payload is not a JSON object", err)
	}

	if _, err := decodeSegment(parts[2]); err != nil {
		return Header{}, newError(KindMalformedToken, "signature is not base64url", err)
	}
	return h, nil
}

// UnverifiedExpiry reads exp from token without verifying anything. It is
// for clients deciding when to refresh their own tokens, never for
// authorization decisions.
func UnverifiedExpiry(token string) (time.Time, error) {
	if _, err := ParseStructure(token); err != nil {
		return time.Time{}, err
	}
	pb, _ := decodeSegment(strings.Split(token, ".")[1])

	var c struct {
		Exp *json.Number `json:"exp"`
	}
	if err := json.Unmarshal(pb, &c); err != nil {
		return time.Time{}, newError(KindMalformedToken, "exp is not numeric", err)
	}
	if c.Exp == nil {
		return time.Time{}, newError(KindMalformedToken, "missing exp", nil)
	}
	f, err := c.Exp.Float64()
	if err != nil {
		return time.Time{}, newError(KindMalformedToken, "exp is not numeric", err)
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec), nil
}

// UnverifiedClaims decodes the payload of token without verifying it. Like
// UnverifiedExpiry it is only for a client inspecting its own tokens.
func UnverifiedClaims(token string) (*Claims, error) {
	if _, err := ParseStructure(token); err != nil {
		return nil, err
	}
	pb, _ := decodeSegment(strings.Split(token, ".")[1])

	var c Claims
	if err := json.Unmarshal(pb, &c); err != nil {
		return nil, newError(KindMalformedToken, "payload does not decode as claims", err)
	}
	return &c, nil
}

// decodeSegment accepts unpadded base64url, and tolerates padding some
// issuers still emit.
func decodeSegment(seg string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(seg, "="))
}
