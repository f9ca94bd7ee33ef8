package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACTokenVerifier returns a VerifyFunc that validates HS256-signed tokens
// against the shared secret.
func HMACTokenVerifier(secret []byte) VerifyFunc {
	return func(_ context.Context, token string) (map[string]any, error) {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
		if err != nil {
			return nil, err
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return nil, errors.New("unexpected claims type")
		}
		return map[string]any(claims), nil
	}
}

// DevTokenParams captures the claims required to mint a token for local and
// CI environments. No environment variables are read so the builder stays
// deterministic for tooling.
type DevTokenParams struct {
	UserID    string
	Email     string
	Name      string
	TenantID  string
	IsAdmin   bool
	ExpiresIn time.Duration // default 1h if zero
}

// BuildDevToken mints an HS256-signed token carrying the Trimly claim set,
// suitable for flowing through the standard auth middleware in development.
func BuildDevToken(secret []byte, p DevTokenParams, now time.Time) (string, error) {
	if p.UserID == "" {
		return "", errors.New("userID is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	claims := jwt.MapClaims{
		"sub":     p.UserID,
		"uid":     p.UserID,
		"email":   p.Email,
		"isAdmin": p.IsAdmin,
		"iat":     now.Unix(),
		"exp":     now.Add(expiresIn).Unix(),
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	if p.TenantID != "" {
		claims["tenantId"] = p.TenantID
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
