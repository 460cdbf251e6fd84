package config

const (
	defaultBaseURL            = "http://127.0.0.1:8000"
	defaultRequestTimeout     = 30
	defaultRateLimitPerSecond = 10
	defaultRateBurst          = 5
	defaultStateDir           = "~/.local/share/shortsadmin"
	defaultLogDir             = "~/.local/share/shortsadmin/logs"
	defaultDashboardJobsMS    = 3000
	defaultDashboardMetricsMS = 10000
	defaultJobsListMS         = 2000
	defaultJobDetailMS        = 1500
	defaultPageLimit          = 50
	defaultDashboardJobsLimit = 8
	defaultMetricsDays        = 14
	defaultLogFormat          = "console"
	defaultLogLevel           = "warn"

	// MaxPageLimit mirrors the backend's upper bound on limit.
	MaxPageLimit = 200
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:            defaultBaseURL,
			RequestTimeout:     defaultRequestTimeout,
			RateLimitPerSecond: defaultRateLimitPerSecond,
			RateBurst:          defaultRateBurst,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Polling: Polling{
			DashboardJobsMS:    defaultDashboardJobsMS,
			DashboardMetricsMS: defaultDashboardMetricsMS,
			JobsListMS:         defaultJobsListMS,
			JobDetailMS:        defaultJobDetailMS,
		},
		Paging: Paging{
			UsersLimit:         defaultPageLimit,
			EpisodesLimit:      defaultPageLimit,
			JobsLimit:          defaultPageLimit,
			DashboardJobsLimit: defaultDashboardJobsLimit,
			MetricsDays:        defaultMetricsDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
