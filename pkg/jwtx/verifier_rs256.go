package jwtx

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// KeySetValidator verifies RS256 tokens against keys resolved by kid.
type KeySetValidator struct {
	keys   *KeySource
	issuer string
	now    func() time.Time
	parser *jwt.Parser
	tracer trace.Tracer
}

// NewKeySetValidator creates a validator for the key-set strategy.
func NewKeySetValidator(keys *KeySource, issuer string, now func() time.Time) *KeySetValidator {
	if now == nil {
		now = time.Now
	}
	return &KeySetValidator{
		keys:   keys,
		issuer: issuer,
		now:    now,
		// exp and iss are checked by us with strict semantics.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		tracer: otel.Tracer(tracerName),
	}
}

// Verify validates the token and returns its claims.
func (v *KeySetValidator) Verify(ctx context.Context, token string) (_ *Claims, err error) {
	ctx, span := startSpan(ctx, v.tracer, "jwtx.Verify")
	span.SetAttributes(attribute.String("jwt.strategy", string(StrategyKeySet)))
	defer func() {
		if err != nil {
			span.SetAttributes(attribute.String("jwt.failure", string(KindOf(err))))
		}
		finishSpan(span, err)
		span.End()
	}()

	if v.keys == nil || v.issuer == "" {
		return nil, newError(KindNotConfigured, "key-set strategy needs an issuer and a key source", nil)
	}

	h, err := ParseStructure(token)
	if err != nil {
		return nil, err
	}

	// Pin the algorithm before touching any key. This is what stops "none"
	// and HS256-with-the-public-key tokens.
	if h.Alg != jwt.SigningMethodRS256.Alg() {
		return nil, newErrorf(KindUnsupportedAlgorithm, "alg %q", h.Alg)
	}
	if h.Kid == "" {
		return nil, newError(KindSignatureInvalid, "missing kid", nil)
	}

	key, err := v.keys.Key(ctx, h.Kid)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, newErrorf(KindSignatureInvalid, "unknown kid %q", h.Kid)
	}
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key.Key, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if err := claims.validateIssuer(v.issuer); err != nil {
		return nil, err
	}
	if err := claims.validateExpiry(v.now()); err != nil {
		return nil, err
	}
	return claims, nil
}

// classifyParseError maps golang-jwt errors onto our kinds. Anything not
// recognised is treated as a signature failure: fail closed.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformedToken, "parse", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return newError(KindUnsupportedAlgorithm, "unverifiable", err)
	default:
		return newError(KindSignatureInvalid, "verify", err)
	}
}
