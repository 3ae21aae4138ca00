package jwtx

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SharedSecretValidator verifies HS256 tokens with a shared secret.
type SharedSecretValidator struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
	tracer trace.Tracer
}

// NewSharedSecretValidator creates a validator for the shared-secret
// strategy. An empty issuer disables the issuer check.
func NewSharedSecretValidator(secret []byte, issuer string, now func() time.Time) *SharedSecretValidator {
	if now == nil {
		now = time.Now
	}
	return &SharedSecretValidator{
		secret: secret,
		issuer: issuer,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		tracer: otel.Tracer(tracerName),
	}
}

// Verify validates the token and returns its claims.
func (v *SharedSecretValidator) Verify(ctx context.Context, token string) (_ *Claims, err error) {
	_, span := startSpan(ctx, v.tracer, "jwtx.Verify")
	span.SetAttributes(attribute.String("jwt.strategy", string(StrategySharedSecret)))
	defer func() {
		if err != nil {
			span.SetAttributes(attribute.String("jwt.failure", string(KindOf(err))))
		}
		finishSpan(span, err)
		span.End()
	}()

	if len(v.secret) == 0 {
		return nil, newError(KindNotConfigured, "shared-secret strategy needs a secret", nil)
	}

	h, err := ParseStructure(token)
	if err != nil {
		return nil, err
	}
	if h.Alg != jwt.SigningMethodHS256.Alg() {
		return nil, newErrorf(KindUnsupportedAlgorithm, "alg %q", h.Alg)
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if v.issuer != "" {
		if err := claims.validateIssuer(v.issuer); err != nil {
			return nil, err
		}
	}
	if err := claims.validateExpiry(v.now()); err != nil {
		return nil, err
	}
	return claims, nil
}
