package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
	"shortsadmin/internal/testsupport"
)

func TestUsersListPaging(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)
	env.backend.AddUsers(60)

	out, _, err := env.run(t, "users", "list", "--limit", "50")
	if err != nil {
		t.Fatalf("users list: %v", err)
	}
	requireContains(t, out, "gen-059", "Showing 1-50 of 63", "next: --offset 50")
	if strings.Contains(out, "prev:") {
		t.Fatalf("first page must not offer prev:\n%s", out)
	}

	out, _, err = env.run(t, "users", "list", "--limit", "50", "--offset", "50")
	if err != nil {
		t.Fatalf("users list: %v", err)
	}
	requireContains(t, out, "Showing 51-63 of 63", "prev: --offset 0", "admin@example.com")

	out, _, err = env.run(t, "--json", "users", "list", "--limit", "50", "--all-pages")
	if err != nil {
		t.Fatalf("users list --all-pages: %v", err)
	}
	var page api.Page[api.User]
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 63 || page.Total != 63 {
		t.Fatalf("expected all 63 users, got %d of %d", len(page.Items), page.Total)
	}
}

func TestUsersListFilters(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "users", "list", "--inactive")
	if err != nil {
		t.Fatalf("users list: %v", err)
	}
	requireContains(t, out, "user2@example.com", "Showing 1-1 of 1")

	if _, _, err := env.run(t, "users", "list", "--active", "--inactive"); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUsersActivationCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "users", "deactivate", "u-2")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	requireContains(t, out, "Updated u-2")
	if u, _ := env.backend.User("u-2"); u.Active() {
		t.Fatal("expected u-2 inactive")
	}

	if _, _, err := env.run(t, "users", "toggle", "u-2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if u, _ := env.backend.User("u-2"); !u.Active() {
		t.Fatal("expected toggle to reactivate u-2")
	}

	out, _, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "users.set-active", "u-2", "is_active=1", "is_active=0")
}

func TestSetCreditWarnsAboutLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	out, stderr, err := env.run(t, "users", "set-credit", "u-2", "--mode", "add", "--amount", "5")
	if err != nil {
		t.Fatalf("set-credit: %v", err)
	}
	requireContains(t, stderr, "[WARN]", "credits adjust")
	requireContains(t, out, "125")
	if len(env.backend.Ledger("u-2")) != 0 {
		t.Fatal("legacy write must not touch the ledger")
	}
}

func TestCreditsAdjust(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "credits", "adjust", "user1@example.com", "--delta", "10", "--reason", "bonus")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	requireContains(t, out, "Adjusted u-2 by +10, balance now 130", "bonus", "admin@example.com")

	out, _, err = env.run(t, "credits", "show", "u-2")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "130", "+10")

	before := env.backend.Count(http.MethodPost, "/admin/credits/users/u-2/adjust")
	if _, _, err := env.run(t, "credits", "adjust", "u-2", "--delta", "1", "--reason", strings.Repeat("x", 201)); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := env.run(t, "credits", "adjust", "u-2", "--reason", "x"); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected missing delta error, got %v", err)
	}
	if after := env.backend.Count(http.MethodPost, "/admin/credits/users/u-2/adjust"); after != before {
		t.Fatalf("rejected adjustments must not be sent (%d -> %d)", before, after)
	}

	out, _, err = env.run(t, "credits", "list", "-q", "user1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "u-2", "130", "1 users")
}

func TestEpisodeDeletePartialFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)
	env.backend.FailObject("episodes/ep-1/preview.mp4", "access denied")

	out, _, err := env.run(t, "episodes", "delete", "ep-1")
	if err != nil {
		t.Fatalf("partial delete must exit cleanly: %v", err)
	}
	requireContains(t, out, "[WARN] Deleted ep-1 but 1 of 2 objects remain", "[ERROR] episodes/ep-1/preview.mp4: access denied", "[OK] episodes/ep-1/final.mp4")

	out, _, err = env.run(t, "episodes", "delete", "ep-2", "--keep-objects")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "[OK] Deleted ep-2 (0 objects removed)")

	out, _, err = env.run(t, "episodes", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No episodes")

	out, _, err = env.run(t, "history", "--action", "episodes.delete")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "partial", "ok")
}

func TestProtocolErrorSurfacesDetail(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, _, err := env.run(t, "episodes", "delete", "ep-missing")
	if err == nil || err.Error() != "episode not found (HTTP 404)" {
		t.Fatalf("unexpected error %v", err)
	}
	out, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "error", "HTTP 404")
}

func TestJobsList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "jobs", "list", "--status", "started,pending")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "job-2", "42%", "job-3", "Started", "Showing 1-2 of 2")
	if strings.Contains(out, "job-1") {
		t.Fatalf("succeeded job should be filtered out:\n%s", out)
	}

	out, _, err = env.run(t, "jobs", "show", "job-2")
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, "Progress", " 42%", `"progress": 0.42`)
}

func TestAssetsUploadAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	file := filepath.Join(t.TempDir(), "logo.otf")
	if err := os.WriteFile(file, []byte("glyphs"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := env.run(t, "assets", "upload", "fonts", file, "--key", "../brand/logo.otf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Uploaded fonts/brand/logo.otf (6 B)")

	out, _, err = env.run(t, "assets", "list", "fonts", "--prefix", "brand/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "brand/logo.otf", "brand/title.ttf", "2 objects")

	if _, _, err := env.run(t, "assets", "upload", "fonts", file, "--key", "/.."); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := env.run(t, "assets", "list", "videos"); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestDashboardPanelsFailIndependently(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "dashboard")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	requireContains(t, out, "Overview (last 14 days)", "3 (2 active)", "Recent jobs", "job-3")

	env.backend.FailNext(http.MethodGet, "/admin/metrics/overview", http.StatusBadGateway, "metrics offline")
	out, _, err = env.run(t, "--json", "dashboard")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	var payload dashboardJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Overview != nil || !strings.Contains(payload.OverviewError, "metrics offline") {
		t.Fatalf("expected overview error, got %+v", payload)
	}
	if payload.Jobs == nil || payload.Jobs.Total != 3 {
		t.Fatalf("expected jobs panel, got %+v", payload.Jobs)
	}
}

func TestAPIURLFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.API.BaseURL = "http://127.0.0.1:1"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := env.run(t, "--api-url", env.backend.URL()+"/api/", "login", "--token", testsupport.AdminToken(t))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Logged in")
}
