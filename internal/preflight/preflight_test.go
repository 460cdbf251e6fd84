package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/config"
	"shortsadmin/internal/gateway"
	"shortsadmin/internal/logging"
	"shortsadmin/internal/session"
	"shortsadmin/internal/testsupport"
)

func newService(t *testing.T, cfg *config.Config, token string) *admin.Service {
	t.Helper()
	store, err := session.New(session.NewMemoryStore(token), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	gw, err := gateway.New(gateway.Options{BaseURL: cfg.API.BaseURL, Timeout: cfg.RequestTimeout()}, store)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := admin.New(admin.Options{Gateway: gw, Session: store})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckToken(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		token  string
		passed bool
		detail string
	}{
		{"empty", "", false, "not logged in"},
		{"garbage", "abc", false, "invalid token"},
		{"expired", testsupport.SignToken(t, jwt.MapClaims{"sub": "u-1", "exp": now.Add(-time.Hour).Unix()}), false, "expired"},
		{"no expiry", testsupport.SignToken(t, jwt.MapClaims{"sub": "u-1"}), true, "no expiry"},
		{"valid", testsupport.AdminToken(t), true, "valid until"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckToken(tc.token, now)
			if result.Passed != tc.passed || !strings.Contains(result.Detail, tc.detail) {
				t.Fatalf("got %+v", result)
			}
		})
	}
}

func TestCheckAdmin(t *testing.T) {
	backend := testsupport.NewBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))

	if result := CheckAdmin(context.Background(), newService(t, cfg, testsupport.AdminToken(t))); !result.Passed {
		t.Fatalf("expected admin pass, got %s", result.Detail)
	}
	result := CheckAdmin(context.Background(), newService(t, cfg, testsupport.UserToken(t)))
	if result.Passed || !strings.Contains(result.Detail, `"user"`) {
		t.Fatalf("expected role failure, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil, "", time.Now()); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_LoggedIn(t *testing.T) {
	backend := testsupport.NewBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))
	token := testsupport.AdminToken(t)

	results := RunAll(context.Background(), cfg, newService(t, cfg, token), token, time.Now())
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("expected no failures")
	}
}

func TestRunAll_SkipsAdminWithoutToken(t *testing.T) {
	backend := testsupport.NewBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))

	results := RunAll(context.Background(), cfg, newService(t, cfg, ""), "", time.Now())
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !Failed(results) {
		t.Fatal("missing token should fail")
	}
	if n := backend.Count("GET", "/auth/me"); n != 0 {
		t.Fatalf("expected no profile lookup, got %d", n)
	}
}

func TestRunAll_BackendDown(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL("http://127.0.0.1:1"))
	results := RunAll(context.Background(), cfg, newService(t, cfg, ""), "", time.Now())
	for _, r := range results {
		if r.Name == "Backend" {
			if r.Passed {
				t.Fatal("expected backend failure")
			}
			return
		}
	}
	t.Fatal("expected Backend result")
}
