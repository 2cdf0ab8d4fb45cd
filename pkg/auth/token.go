package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/config"
)

var (
	// ErrTokenExpired lets the UI tell a timed-out session from a bad one.
	ErrTokenExpired = errors.New("session token expired")
	ErrTokenInvalid = errors.New("session token invalid")

	signingMethod = jwt.SigningMethodHS256
)

func signingKey(cfg config.JWTConfig) ([]byte, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("STOREFRONT_JWT_SECRET is empty")
	}
	return []byte(cfg.Secret), nil
}

// MintAccessToken signs an HS256 session token valid for cfg.SessionTTL from now.
// An empty payload JTI gets a fresh uuid.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return "", err
	}
	ttl := cfg.SessionTTL()
	switch {
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is empty")
	case ttl <= 0:
		return "", errors.New("session ttl must be positive")
	case payload.UserID == uuid.Nil:
		return "", errors.New("token subject is empty")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("unknown role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(key)
}

// ParseAccessToken checks signature, algorithm, issuer and expiry. Failures
// wrap ErrTokenExpired or ErrTokenInvalid.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil }); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.ID == "" || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing jti or user", ErrTokenInvalid)
	}
	return claims, nil
}
