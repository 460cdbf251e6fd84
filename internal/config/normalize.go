package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePolling()
	c.normalizePaging()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("SHORTSADMIN_API_URL"); ok && strings.TrimSpace(value) != "" {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	// Callers add the /api prefix per request.
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/api")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	if value, ok := os.LookupEnv("SHORTSADMIN_TOKEN"); ok {
		c.API.Token = strings.TrimSpace(value)
	}
	if c.API.RateBurst <= 0 && c.API.RateLimitPerSecond > 0 {
		c.API.RateBurst = 1
	}
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePolling() {
	defaults := Default().Polling
	fill := func(v *int, fallback int) {
		if *v <= 0 {
			*v = fallback
		}
	}
	fill(&c.Polling.DashboardJobsMS, defaults.DashboardJobsMS)
	fill(&c.Polling.DashboardMetricsMS, defaults.DashboardMetricsMS)
	fill(&c.Polling.JobsListMS, defaults.JobsListMS)
	fill(&c.Polling.JobDetailMS, defaults.JobDetailMS)
}

func (c *Config) normalizePaging() {
	defaults := Default().Paging
	fill := func(v *int, fallback int) {
		if *v == 0 {
			*v = fallback
		}
	}
	fill(&c.Paging.UsersLimit, defaults.UsersLimit)
	fill(&c.Paging.EpisodesLimit, defaults.EpisodesLimit)
	fill(&c.Paging.JobsLimit, defaults.JobsLimit)
	fill(&c.Paging.DashboardJobsLimit, defaults.DashboardJobsLimit)
	fill(&c.Paging.MetricsDays, defaults.MetricsDays)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
