package preflight

import (
	"context"
	"time"

	"shortsadmin/internal/api"
	"shortsadmin/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Backend is the subset of the admin service the checks call.
type Backend interface {
	Health(ctx context.Context) (api.Health, error)
	Me(ctx context.Context) (api.Profile, error)
}

// RunAll executes every check for cfg. token is the stored credential; an
// empty token skips the role check.
func RunAll(ctx context.Context, cfg *config.Config, backend Backend, token string, now time.Time) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if backend == nil {
		return results
	}

	results = append(results, CheckBackend(ctx, backend))

	tokenResult := CheckToken(token, now)
	results = append(results, tokenResult)
	if tokenResult.Passed {
		results = append(results, CheckAdmin(ctx, backend))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
