package testsupport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"shortsadmin/internal/api"
)

// RecordedRequest is one request seen by the fake backend.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	RequestID     string
	Authorization string
}

type creditAccount struct {
	updatedAt time.Time
	ledger    []api.CreditLedgerEntry
}

type storedAsset struct {
	item    api.AssetItem
	content []byte
}

type injectedFailure struct {
	status int
	detail string
}

// Backend is an in-memory stand-in for the admin REST backend. It verifies
// HS256 tokens signed with Secret and gates /api/admin on the admin role.
type Backend struct {
	server *httptest.Server

	mu             sync.Mutex
	clock          time.Time
	users          []api.User
	episodes       []api.Episode
	episodeObjects map[string][]string
	failObjects    map[string]string
	jobs           []api.Job
	accounts       map[string]*creditAccount
	assets         map[api.AssetKind][]storedAsset
	requests       []RecordedRequest
	failures       map[string]injectedFailure
	hold           map[string]chan struct{}
}

// NewBackend starts a seeded fake backend that closes with the test.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		clock:          time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		episodeObjects: make(map[string][]string),
		failObjects:    make(map[string]string),
		accounts:       make(map[string]*creditAccount),
		assets:         make(map[api.AssetKind][]storedAsset),
		failures:       make(map[string]injectedFailure),
		hold:           make(map[string]chan struct{}),
	}
	b.seed()
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the backend origin without /api.
func (b *Backend) URL() string {
	return b.server.URL
}

func (b *Backend) tick() time.Time {
	b.clock = b.clock.Add(time.Minute)
	return b.clock
}

func (b *Backend) seed() {
	for i, seed := range []struct {
		email, username string
		credit          int64
		active          int
	}{
		{"admin@example.com", "admin", 9999, 1},
		{"user1@example.com", "user1", 120, 1},
		{"user2@example.com", "user2", 0, 0},
	} {
		b.addUserLocked(fmt.Sprintf("u-%d", i+1), seed.email, seed.username, seed.active, seed.credit)
	}

	b.addEpisodeLocked(api.Episode{EpisodeID: "ep-1", UserID: ptr("u-2"), Title: ptr("Pilot")},
		"episodes/ep-1/final.mp4", "episodes/ep-1/preview.mp4")
	b.addEpisodeLocked(api.Episode{EpisodeID: "ep-2", UserID: ptr("u-3"), Title: ptr("Finale")},
		"episodes/ep-2/final.mp4")

	b.addJobLocked(api.Job{JobID: "job-1", JobType: "render", Status: api.JobStatusSucceeded, Result: []byte(`{"progress":1}`)})
	b.addJobLocked(api.Job{JobID: "job-2", JobType: "render", Status: api.JobStatusStarted, Result: []byte(`{"progress":0.42}`)})
	b.addJobLocked(api.Job{JobID: "job-3", JobType: "tts", Status: api.JobStatusPending})

	size := int64(4)
	b.assets[api.AssetFonts] = []storedAsset{{
		item:    api.AssetItem{Key: "brand/title.ttf", Size: &size, LastModified: api.NewTimestamp(b.clock), URL: ptr("/static/assets/fonts/brand/title.ttf")},
		content: []byte("font"),
	}}
}

func (b *Backend) addUserLocked(id, email, username string, active int, credit int64) {
	created := b.tick()
	plan := "free"
	balance := credit
	// Newest first, matching the backend's created_at DESC order.
	b.users = slices.Insert(b.users, 0, api.User{
		UserID:    id,
		Email:     email,
		Username:  username,
		IsActive:  active,
		CreatedAt: api.NewTimestamp(created),
		Plan:      &plan,
		Credit:    &balance,
	})
	b.accounts[id] = &creditAccount{updatedAt: created}
}

func (b *Backend) addEpisodeLocked(ep api.Episode, objects ...string) {
	ep.CreatedAt = api.NewTimestamp(b.tick())
	if len(objects) > 0 {
		ep.VideoURL = ptr("https://cdn.example.com/" + objects[0])
	}
	b.episodes = slices.Insert(b.episodes, 0, ep)
	b.episodeObjects[ep.EpisodeID] = objects
}

func (b *Backend) addJobLocked(job api.Job) {
	now := b.tick()
	job.CreatedAt = api.NewTimestamp(now)
	job.UpdatedAt = api.NewTimestamp(now)
	b.jobs = slices.Insert(b.jobs, 0, job)
}

// AddUsers appends n generated users, for paging tests.
func (b *Backend) AddUsers(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range n {
		id := fmt.Sprintf("gen-%03d", i)
		b.addUserLocked(id, id+"@example.com", id, 1, 0)
	}
}

// AddJob inserts a job as the newest.
func (b *Backend) AddJob(job api.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addJobLocked(job)
}

// UpdateJob replaces status and result of an existing job.
func (b *Backend) UpdateJob(id, status, result string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.jobs {
		if b.jobs[i].JobID == id {
			b.jobs[i].Status = status
			if result != "" {
				b.jobs[i].Result = []byte(result)
			}
			b.jobs[i].UpdatedAt = api.NewTimestamp(b.tick())
		}
	}
}

// FailObject makes deleting the named output object fail with msg.
func (b *Backend) FailObject(key, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failObjects[key] = msg
}

// FailNext makes the next request matching method and path (without /api)
// fail with status and detail.
func (b *Backend) FailNext(method, path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = injectedFailure{status: status, detail: detail}
}

// Hold blocks requests to path until the returned release func is called.
func (b *Backend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.hold[method+" "+path] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.hold, method+" "+path)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns a copy of every request received.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// Count returns how many requests matched method and path (without /api).
func (b *Backend) Count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, req := range b.requests {
		if req.Method == method && req.Path == "/api"+path {
			n++
		}
	}
	return n
}

// User returns a copy of a stored user.
func (b *Backend) User(id string) (api.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(id)
	if idx < 0 {
		return api.User{}, false
	}
	return b.users[idx], true
}

// Balance returns a user's credit balance.
func (b *Backend) Balance(id string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.userIndexLocked(id)
	if idx < 0 || b.users[idx].Credit == nil {
		return 0
	}
	return *b.users[idx].Credit
}

// Ledger returns a user's ledger, oldest first.
func (b *Backend) Ledger(id string) []api.CreditLedgerEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if account, ok := b.accounts[id]; ok {
		return slices.Clone(account.ledger)
	}
	return nil
}

// HasEpisode reports whether an episode row exists.
func (b *Backend) HasEpisode(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.episodeIndexLocked(id) >= 0
}

// Asset returns stored asset content.
func (b *Backend) Asset(kind api.AssetKind, key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, asset := range b.assets[kind] {
		if asset.item.Key == key {
			return slices.Clone(asset.content), true
		}
	}
	return nil, false
}

func (b *Backend) userIndexLocked(id string) int {
	return slices.IndexFunc(b.users, func(u api.User) bool { return u.UserID == id })
}

func (b *Backend) episodeIndexLocked(id string) int {
	return slices.IndexFunc(b.episodes, func(e api.Episode) bool { return e.EpisodeID == id })
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			RequestID:     r.Header.Get("X-Request-ID"),
			Authorization: r.Header.Get("Authorization"),
		})
		failure, failing := b.failures[key]
		delete(b.failures, key)
		held := b.hold[key]
		b.mu.Unlock()

		if held != nil {
			select {
			case <-held:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeDetail(w, failure.status, failure.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", b.health)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/auth/me", b.me)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate, requireAdmin)

			r.Get("/users", b.listUsers)
			r.Patch("/users/{userID}/credit", b.patchCredit)
			r.Patch("/users/{userID}/active", b.patchActive)
			r.Patch("/users/{userID}/plan", b.patchPlan)

			r.Get("/episodes", b.listEpisodes)
			r.Delete("/episodes/{episodeID}", b.deleteEpisode)

			r.Get("/jobs", b.listJobs)
			r.Get("/jobs/{jobID}", b.getJob)

			r.Get("/metrics/overview", b.overview)

			r.Get("/assets/{kind}", b.listAssets)
			r.Post("/assets/{kind}/upload", b.uploadAsset)

			r.Get("/credits/users", b.listCreditUsers)
			r.Get("/credits/users/{userID}", b.getCreditUser)
			r.Post("/credits/users/{userID}/adjust", b.adjustCredit)
		})
	})
	return r
}

func ptr[T any](v T) *T {
	return &v
}
