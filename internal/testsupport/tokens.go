package testsupport

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Secret signs every token the fake backend accepts.
const Secret = "shortsadmin-test-secret"

// SignToken signs claims with Secret using HS256.
func SignToken(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// AdminToken returns a valid admin token for the seeded admin account.
func AdminToken(t testing.TB) string {
	t.Helper()
	return SignToken(t, jwt.MapClaims{
		"sub":   "u-1",
		"email": "admin@example.com",
		"role":  "admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

// UserToken returns a valid token without the admin role.
func UserToken(t testing.TB) string {
	t.Helper()
	return SignToken(t, jwt.MapClaims{
		"sub":   "u-2",
		"email": "user1@example.com",
		"role":  "user",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}
