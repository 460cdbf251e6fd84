package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validatePaging(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api.base_url is missing a host: %q", c.API.BaseURL)
	}
	if c.API.RequestTimeout < 0 {
		return errors.New("api.request_timeout must be >= 0")
	}
	if c.API.RateLimitPerSecond < 0 {
		return errors.New("api.rate_limit_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validatePaging() error {
	limits := map[string]int{
		"paging.users_limit":          c.Paging.UsersLimit,
		"paging.episodes_limit":       c.Paging.EpisodesLimit,
		"paging.jobs_limit":           c.Paging.JobsLimit,
		"paging.dashboard_jobs_limit": c.Paging.DashboardJobsLimit,
	}
	for key, value := range limits {
		if value < 1 || value > MaxPageLimit {
			return fmt.Errorf("%s must be between 1 and %d, got %d", key, MaxPageLimit, value)
		}
	}
	if c.Paging.MetricsDays < 1 {
		return fmt.Errorf("paging.metrics_days must be positive, got %d", c.Paging.MetricsDays)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
