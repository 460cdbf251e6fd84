package admin

import (
	"context"

	"golang.org/x/sync/errgroup"

	"shortsadmin/internal/api"
)

// Dashboard is the landing summary. Each panel carries its own error so one
// failing endpoint does not blank the others.
type Dashboard struct {
	Overview    api.Overview
	OverviewErr error
	Jobs        api.Page[api.Job]
	JobsErr     error
}

// Err returns the first panel error.
func (d Dashboard) Err() error {
	if d.OverviewErr != nil {
		return d.OverviewErr
	}
	return d.JobsErr
}

// Dashboard fetches metrics for the last days and the newest jobs
// concurrently. Panel failures are reported on the panels; the returned
// error is only set when ctx ends before both panels are in.
func (s *Service) Dashboard(ctx context.Context, days, jobsLimit int) (Dashboard, error) {
	if err := s.session.Require(); err != nil {
		return Dashboard{}, err
	}
	recent := s.JobsView(jobsLimit)

	var out Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Overview, out.OverviewErr = s.Overview(gctx, days)
		return ctx.Err()
	})
	g.Go(func() error {
		out.Jobs, out.JobsErr = recent.Fetch(gctx)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}
