package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken marks a credential rejected before any request is sent.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity fields read from an access token. The signature is
// not verified here; the backend does that on every request.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim in the past.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// IsAdmin reports whether the role claim grants admin access.
func (c Claims) IsAdmin() bool {
	return c.Role == "admin"
}

// DecodeClaims parses token without verifying its signature.
func DecodeClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := Claims{
		Subject: firstString(mapClaims, "sub", "user_id", "id"),
		Email:   firstString(mapClaims, "email", "user_email"),
		Role:    firstString(mapClaims, "role", "user_role"),
	}
	if claims.Role == "" {
		claims.Role = "user"
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// ValidateToken decodes token and rejects missing subjects and expired
// credentials.
func ValidateToken(token string, now time.Time) (Claims, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Expired(now) {
		return Claims{}, fmt.Errorf("%w: expired at %s", ErrInvalidToken, claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return claims, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch value := claims[key].(type) {
		case string:
			if value != "" {
				return value
			}
		case float64:
			return fmt.Sprintf("%.0f", value)
		}
	}
	return ""
}
