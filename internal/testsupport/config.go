package testsupport

import (
	"path/filepath"
	"testing"

	"shortsadmin/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The client-side rate limiter is disabled so tests never wait on it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.API.RateLimitPerSecond = 0
	cfgVal.API.RequestTimeout = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBackend points the config at a fake backend.
func WithBackend(b *Backend) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.API.BaseURL = b.URL()
	}
}

// WithBaseURL overrides the backend URL.
func WithBaseURL(url string) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.API.BaseURL = url
	}
}

// WithPageLimit sets every list window size.
func WithPageLimit(limit int) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Paging.UsersLimit = limit
		cb.cfg.Paging.EpisodesLimit = limit
		cb.cfg.Paging.JobsLimit = limit
	}
}

// WithFastPolling shortens every watch interval to ms.
func WithFastPolling(ms int) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Polling.DashboardJobsMS = ms
		cb.cfg.Polling.DashboardMetricsMS = ms
		cb.cfg.Polling.JobsListMS = ms
		cb.cfg.Polling.JobDetailMS = ms
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
