package admin_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
	"shortsadmin/internal/gateway"
	"shortsadmin/internal/journal"
	"shortsadmin/internal/logging"
	"shortsadmin/internal/poller"
	"shortsadmin/internal/querycache"
	"shortsadmin/internal/session"
	"shortsadmin/internal/testsupport"
)

type harness struct {
	svc     *admin.Service
	backend *testsupport.Backend
	session *session.Store
	journal *journal.Store
}

// fresh reports whether key holds a value no mutation has invalidated.
func fresh(c *querycache.Cache, key querycache.Key) bool {
	_, isFresh, ok := c.Get(key)
	return ok && isFresh
}

func newHarness(t *testing.T, token string) harness {
	t.Helper()
	backend := testsupport.NewBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))

	store, err := session.New(session.NewMemoryStore(token), logging.NewNop())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	gw, err := gateway.New(gateway.Options{BaseURL: cfg.API.BaseURL, Timeout: cfg.RequestTimeout()}, store)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	actions := testsupport.MustOpenJournal(t, cfg)
	svc, err := admin.New(admin.Options{Gateway: gw, Session: store, Journal: actions})
	if err != nil {
		t.Fatalf("admin.New: %v", err)
	}
	return harness{svc: svc, backend: backend, session: store, journal: actions}
}

func (h harness) lastEntry(t *testing.T) journal.Entry {
	t.Helper()
	entries, err := h.journal.List(context.Background(), journal.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("journal List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a journal entry, got %d", len(entries))
	}
	return entries[0]
}

func TestAdjustCreditAppendsOneLedgerEntry(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	if err := h.backend.SetBalance("u-2", 5); err != nil {
		t.Fatal(err)
	}

	detail, err := h.svc.AdjustCredit(context.Background(), "u-2", 10, "x")
	if err != nil {
		t.Fatalf("AdjustCredit: %v", err)
	}
	if detail.CreditsBalance != 15 {
		t.Fatalf("expected balance 15, got %d", detail.CreditsBalance)
	}
	if len(detail.Ledger) != 1 || detail.Ledger[0].Delta != 10 || detail.Ledger[0].Reason != "x" {
		t.Fatalf("expected one ledger entry with delta 10, got %+v", detail.Ledger)
	}
	if got := h.backend.Ledger("u-2"); len(got) != 1 {
		t.Fatalf("backend ledger has %d entries", len(got))
	}

	entry := h.lastEntry(t)
	if entry.Action != string(admin.MutationAdjustCredit) || entry.Outcome != journal.OutcomeOK || entry.Target != "u-2" {
		t.Fatalf("unexpected journal entry %+v", entry)
	}
	if entry.Actor != "u-1" {
		t.Fatalf("expected token subject as actor, got %q", entry.Actor)
	}
	reqs := h.backend.Requests()
	if last := reqs[len(reqs)-1]; last.RequestID != entry.RequestID {
		t.Fatalf("journal request id %q does not match sent %q", entry.RequestID, last.RequestID)
	}
}

func TestAdjustCreditValidationSendsNothing(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	tests := []struct {
		name   string
		user   string
		reason string
	}{
		{"empty reason", "u-2", ""},
		{"blank reason", "u-2", "   "},
		{"reason too long", "u-2", strings.Repeat("r", admin.MaxReasonLength+1)},
		{"missing user", "", "reason"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.AdjustCredit(context.Background(), tc.user, 1, tc.reason)
			if !errors.Is(err, admin.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if n := len(h.backend.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestFailedMutationKeepsCacheAndJournalsError(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	ctx := context.Background()
	view := h.svc.CreditsView()
	if _, err := view.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	h.backend.FailNext(http.MethodPost, "/admin/credits/users/u-2/adjust", http.StatusInternalServerError, "ledger unavailable")
	_, err := h.svc.AdjustCredit(ctx, "u-2", 10, "bonus")
	if gateway.StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected HTTP 500, got %v", err)
	}
	if !strings.Contains(err.Error(), "ledger unavailable") {
		t.Fatalf("expected server detail in error, got %q", err)
	}
	if !fresh(h.svc.Cache(), view.Key()) {
		t.Fatal("failed mutation must not invalidate")
	}
	if h.backend.Balance("u-2") != 120 {
		t.Fatalf("balance changed to %d", h.backend.Balance("u-2"))
	}
	if entry := h.lastEntry(t); entry.Outcome != journal.OutcomeError || !strings.Contains(entry.Detail, "HTTP 500") {
		t.Fatalf("unexpected journal entry %+v", entry)
	}
}

func TestMutationInvalidatesEveryPageOfFamily(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	h.backend.AddUsers(60)
	ctx := context.Background()

	users := h.svc.UsersView(50)
	if _, err := users.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	firstKey := users.Key()
	if !users.Next() {
		t.Fatal("expected a second page")
	}
	if _, err := users.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	secondKey := users.Key()

	episodes := h.svc.EpisodesView(50)
	if _, err := episodes.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if _, err := h.svc.SetUserActive(ctx, "u-2", false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}

	for _, key := range []querycache.Key{firstKey, secondKey} {
		if fresh(h.svc.Cache(), key) {
			t.Fatalf("expected %s invalidated", key)
		}
	}
	if !fresh(h.svc.Cache(), episodes.Key()) {
		t.Fatal("episodes must not be invalidated by a user mutation")
	}
}

func TestInvalidatesTableCoversEveryMutation(t *testing.T) {
	tests := []struct {
		mutation admin.Mutation
		want     []string
	}{
		{admin.MutationAdjustCredit, []string{"credits", "users"}},
		{admin.MutationPatchCredit, []string{"users", "credits"}},
		{admin.MutationSetActive, []string{"users", "metrics"}},
		{admin.MutationDeleteEpisode, []string{"episodes", "metrics"}},
		{admin.MutationUploadAsset, []string{"assets/{kind}"}},
	}
	for _, tc := range tests {
		got := admin.Invalidates[tc.mutation]
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("%s invalidates %v, want %v", tc.mutation, got, tc.want)
		}
	}
}

func TestFollowingViewRefetchesAfterMutation(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	users := h.svc.UsersView(50)
	users.SetFilters(admin.UserFilter{Active: admin.ActiveInactive})

	totals := make(chan int, 8)
	handle := users.Follow(context.Background(), poller.Options{Interval: time.Hour}, func(page api.Page[api.User], err error) bool {
		if err == nil {
			totals <- page.Total
		}
		return true
	})
	defer handle.Stop()

	expect := func(want int) {
		t.Helper()
		select {
		case got := <-totals:
			if got != want {
				t.Fatalf("expected %d inactive users, got %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no render")
		}
	}
	expect(1)
	if _, err := h.svc.SetUserActive(context.Background(), "u-2", false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	expect(2)
}

func TestDeleteEpisodePartialFailureIsSuccess(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	h.backend.FailObject("episodes/ep-1/preview.mp4", "access denied")

	result, err := h.svc.DeleteEpisode(context.Background(), "ep-1", true)
	if err != nil {
		t.Fatalf("partial delete must not be an error: %v", err)
	}
	if !result.DeletedDB || len(result.DeletedObjects) != 1 || len(result.FailedObjects) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Partial() {
		t.Fatal("expected Partial")
	}
	if result.FailedObjects[0].Key != "episodes/ep-1/preview.mp4" {
		t.Fatalf("unexpected failure %+v", result.FailedObjects[0])
	}
	if h.backend.HasEpisode("ep-1") {
		t.Fatal("episode row should be gone")
	}
	entry := h.lastEntry(t)
	if entry.Outcome != journal.OutcomePartial || !strings.Contains(entry.Detail, "preview.mp4") {
		t.Fatalf("unexpected journal entry %+v", entry)
	}
}

func TestDeleteEpisodeKeepingObjects(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	result, err := h.svc.DeleteEpisode(context.Background(), "ep-2", false)
	if err != nil {
		t.Fatalf("DeleteEpisode: %v", err)
	}
	if !result.DeletedDB || len(result.DeletedObjects) != 0 || result.Partial() {
		t.Fatalf("unexpected result %+v", result)
	}
	if reqs := h.backend.Requests(); !strings.Contains(reqs[len(reqs)-1].Query, "delete_objects=false") {
		t.Fatalf("expected delete_objects=false, got %q", reqs[len(reqs)-1].Query)
	}

	_, err = h.svc.DeleteEpisode(context.Background(), "ep-missing", true)
	if !gateway.IsNotFound(err) {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestUploadAsset(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	ctx := context.Background()

	for _, key := range []string{"", "   ", "/", "..", "/../", "/ "} {
		_, err := h.svc.UploadAsset(ctx, api.AssetFonts, key, admin.Upload{Content: strings.NewReader("x")})
		if !errors.Is(err, admin.ErrValidation) {
			t.Fatalf("key %q: expected ErrValidation, got %v", key, err)
		}
	}
	if n := len(h.backend.Requests()); n != 0 {
		t.Fatalf("expected no requests for rejected keys, got %d", n)
	}

	fonts := h.svc.AssetsView(api.AssetFonts)
	sounds := h.svc.AssetsView(api.AssetSoundEffects)
	for _, view := range []interface {
		Fetch(context.Context) ([]api.AssetItem, error)
	}{fonts, sounds} {
		if _, err := view.Fetch(ctx); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}

	item, err := h.svc.UploadAsset(ctx, api.AssetFonts, "/brand/logo.otf", admin.Upload{
		FileName: "logo.otf",
		Content:  strings.NewReader("glyphs"),
	})
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	if item.Key != "brand/logo.otf" {
		t.Fatalf("unexpected key %q", item.Key)
	}

	spaced, err := h.svc.UploadAsset(ctx, api.AssetFonts, " a.ttf", admin.Upload{Content: strings.NewReader("a")})
	if err != nil {
		t.Fatalf("UploadAsset with leading space: %v", err)
	}
	if spaced.Key != " a.ttf" {
		t.Fatalf("key should be stored as typed, got %q", spaced.Key)
	}
	if content, ok := h.backend.Asset(api.AssetFonts, "brand/logo.otf"); !ok || string(content) != "glyphs" {
		t.Fatalf("unexpected stored content %q", content)
	}
	if fresh(h.svc.Cache(), fonts.Key()) {
		t.Fatal("fonts listing should be invalidated")
	}
	if !fresh(h.svc.Cache(), sounds.Key()) {
		t.Fatal("other asset kinds must stay fresh")
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := map[string]string{
		"fonts/a.ttf":    "fonts/a.ttf",
		"/fonts/a.ttf":   "fonts/a.ttf",
		"../etc/passwd":  "etc/passwd",
		"a/../b":         "a//b",
		"..":             "",
		"///":            "",
		"....//x":        "x",
	}
	for in, want := range tests {
		if got := admin.SanitizeKey(in); got != want {
			t.Fatalf("SanitizeKey(%q) = %q want %q", in, got, want)
		}
	}
}

func TestToggleSendsNegationOfDisplayedFlag(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	ctx := context.Background()

	user, err := h.svc.FindUser(ctx, "u-3")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if user.Active() {
		t.Fatal("seeded u-3 should be inactive")
	}
	updated, err := h.svc.ToggleUserActive(ctx, user)
	if err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	if !updated.Active() {
		t.Fatal("expected user activated")
	}

	if _, err := h.svc.FindUser(ctx, "nobody"); !errors.Is(err, admin.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchUserCredit(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	ctx := context.Background()

	if _, err := h.svc.PatchUserCredit(ctx, "u-2", "multiply", 2, ""); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	user, err := h.svc.PatchUserCredit(ctx, "u-2", "set", 7, "")
	if err != nil {
		t.Fatalf("PatchUserCredit set: %v", err)
	}
	if user.Credit == nil || *user.Credit != 7 {
		t.Fatalf("unexpected credit %v", user.Credit)
	}
	if _, err := h.svc.PatchUserCredit(ctx, "u-2", "add", 3, "manual"); err != nil {
		t.Fatalf("PatchUserCredit add: %v", err)
	}
	if h.backend.Balance("u-2") != 10 {
		t.Fatalf("expected balance 10, got %d", h.backend.Balance("u-2"))
	}
	if len(h.backend.Ledger("u-2")) != 0 {
		t.Fatal("legacy patch must not write the ledger")
	}
}

func TestProtectedCallsWithoutTokenSendNothing(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	if _, err := h.svc.ListUsers(ctx, admin.UserFilter{}, 50, 0); !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := h.svc.SetUserActive(ctx, "u-2", true); !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := h.svc.Dashboard(ctx, 14, 8); !errors.Is(err, session.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if n := len(h.backend.Requests()); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}

	if _, err := h.svc.Health(ctx); err != nil {
		t.Fatalf("health needs no token: %v", err)
	}
}

func TestNonAdminIsForbidden(t *testing.T) {
	h := newHarness(t, testsupport.UserToken(t))
	_, err := h.svc.ListUsers(context.Background(), admin.UserFilter{}, 50, 0)
	if !gateway.IsForbidden(err) {
		t.Fatalf("expected 403, got %v", err)
	}
	if err.Error() != "admin only (HTTP 403)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	now := time.Now()

	profile, claims, err := h.svc.Login(ctx, h.session, testsupport.AdminToken(t), now)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !profile.IsAdmin() || !claims.IsAdmin() || profile.Email != "admin@example.com" {
		t.Fatalf("unexpected profile %+v claims %+v", profile, claims)
	}
	if user := h.session.User(); user == nil || user.ID != "u-1" {
		t.Fatalf("expected profile cached, got %+v", user)
	}

	expired := testsupport.SignToken(t, jwt.MapClaims{"sub": "u-1", "role": "admin", "exp": now.Add(-time.Minute).Unix()})
	before := len(h.backend.Requests())
	if _, _, err := h.svc.Login(ctx, h.session, expired, now); !errors.Is(err, admin.ErrValidation) || !errors.Is(err, session.ErrInvalidToken) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := h.svc.Login(ctx, h.session, "not-a-jwt", now); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.backend.Requests()) != before {
		t.Fatal("locally rejected tokens must not reach the backend")
	}
	if h.session.Token() == "" {
		t.Fatal("rejected login must keep the previous session")
	}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1", "role": "admin"}).SignedString([]byte("wrong"))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = h.svc.Login(ctx, h.session, forged, now)
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if h.session.Authenticated() || h.session.User() != nil {
		t.Fatal("token refused by the backend must be cleared")
	}
}

func TestDashboardReturnsContextErrorWhenCancelled(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.svc.Dashboard(ctx, 14, 8); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDashboardIsolatesPanelFailures(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	h.backend.FailNext(http.MethodGet, "/admin/metrics/overview", http.StatusBadGateway, "metrics offline")

	dash, err := h.svc.Dashboard(context.Background(), 14, 2)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if gateway.StatusOf(dash.OverviewErr) != http.StatusBadGateway {
		t.Fatalf("expected metrics panel error, got %v", dash.OverviewErr)
	}
	if dash.JobsErr != nil || len(dash.Jobs.Items) != 2 || dash.Jobs.Total != 3 {
		t.Fatalf("unexpected jobs panel %+v err=%v", dash.Jobs, dash.JobsErr)
	}
	if dash.Err() == nil {
		t.Fatal("expected Err to surface the failing panel")
	}

	dash, err = h.svc.Dashboard(context.Background(), 14, 8)
	if err != nil || dash.Err() != nil {
		t.Fatalf("Dashboard: %v %v", err, dash.Err())
	}
	if dash.Overview.UsersTotal != 3 || dash.Overview.UsersActive != 2 || dash.Overview.JobsTotal != 3 {
		t.Fatalf("unexpected overview %+v", dash.Overview)
	}
}

func TestListJobsFilters(t *testing.T) {
	h := newHarness(t, testsupport.AdminToken(t))
	page, err := h.svc.ListJobs(context.Background(), admin.NewJobFilter([]string{"pending, started", "pending"}, ""), 50, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 jobs, got %d", page.Total)
	}
	reqs := h.backend.Requests()
	if q := reqs[len(reqs)-1].Query; !strings.Contains(q, "status=pending%2Cstarted") {
		t.Fatalf("unexpected query %q", q)
	}

	job, err := h.svc.GetJob(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if p := api.PickProgress(job.Result, false); !p.Known || p.Whole() != 42 {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestFilterHelpers(t *testing.T) {
	if f := admin.NewJobFilter([]string{" failed ", "", "failed,pending"}, " render "); f.Statuses != "failed,pending" || f.JobType != "render" {
		t.Fatalf("unexpected filter %+v", f)
	}
	if f := admin.NewJobFilter([]string{"FAILED", "failed"}, ""); f.Statuses != "FAILED,failed" {
		t.Fatalf("statuses should keep their case, got %q", f.Statuses)
	}
	if _, err := admin.ParseActiveState(true, true); !errors.Is(err, admin.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	state, err := admin.ParseActiveState(false, true)
	if err != nil || (admin.UserFilter{Active: state}).Params()["is_active"] != "0" {
		t.Fatalf("unexpected state %q %v", state, err)
	}
}
