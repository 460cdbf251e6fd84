package main

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/session"
	"shortsadmin/internal/testsupport"
)

func TestLoginWhoamiLogout(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "login", "--token", testsupport.AdminToken(t))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Logged in as admin@example.com (admin)", "Token expires")
	if _, err := os.Stat(env.cfg.SessionPath()); err != nil {
		t.Fatalf("expected session file: %v", err)
	}

	out, _, err = env.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	requireContains(t, out, "admin@example.com", "u-1")

	if _, _, err := env.run(t, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, _, err = env.run(t, "whoami")
	if !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestLoginReadsStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.runWith(t, t.Context(), strings.NewReader(testsupport.AdminToken(t)+"\n"), "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Logged in as admin@example.com")
}

func TestLoginRejectsExpiredTokenWithoutRequest(t *testing.T) {
	env := setupCLITestEnv(t)
	expired := testsupport.SignToken(t, jwt.MapClaims{"sub": "u-1", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()})

	_, _, err := env.run(t, "login", "--token", expired)
	if !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(env.backend.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
	if _, err := os.Stat(env.cfg.SessionPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no session file, got %v", err)
	}
}

func TestLoginNonAdminWarns(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "login", "--token", testsupport.UserToken(t))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "[WARN]", "not an admin")
}

func TestEnvTokenIsNotPersisted(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("SHORTSADMIN_TOKEN", testsupport.AdminToken(t))

	out, _, err := env.run(t, "users", "list")
	if err != nil {
		t.Fatalf("users list: %v", err)
	}
	requireContains(t, out, "admin@example.com")
	if _, err := os.Stat(env.cfg.SessionPath()); !os.IsNotExist(err) {
		t.Fatalf("env token must not be written, got %v", err)
	}
}

func TestProtectedCommandWithoutLoginSendsNothing(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, args := range [][]string{
		{"users", "list"},
		{"credits", "adjust", "u-2", "--delta", "5", "--reason", "x"},
		{"jobs", "show", "job-1", "--watch"},
		{"dashboard"},
	} {
		_, _, err := env.run(t, args...)
		if !errors.Is(err, session.ErrNotLoggedIn) {
			t.Fatalf("%v: expected ErrNotLoggedIn, got %v", args, err)
		}
	}
	if n := len(env.backend.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}
