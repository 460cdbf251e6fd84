package main

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"shortsadmin/internal/api"
	"shortsadmin/internal/testsupport"
)

func TestJobShowWatchStopsWhenJobFinishes(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFastPolling(20))
	env.login(t)

	go func() {
		time.Sleep(100 * time.Millisecond)
		env.backend.UpdateJob("job-2", api.JobStatusSucceeded, `{"progress":1}`)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, _, err := env.runWith(t, ctx, nil, "jobs", "show", "job-2", "--watch")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("watch should end on its own once the job is final")
	}
	requireContains(t, out, "Started", "Succeeded", "100%")
	if strings.LastIndex(out, "Succeeded") < strings.LastIndex(out, "Started") {
		t.Fatalf("final render should be the succeeded job:\n%s", out)
	}
}

func TestJobShowWatchReportsFailure(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFastPolling(20))
	env.login(t)
	env.backend.AddJob(api.Job{JobID: "job-9", JobType: "render", Status: api.JobStatusFailed, Error: ptrTo("ffmpeg exited 1")})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := env.runWith(t, ctx, nil, "jobs", "show", "job-9", "--watch")
	if err == nil || !strings.Contains(err.Error(), "ffmpeg exited 1") {
		t.Fatalf("expected failure error, got %v", err)
	}
}

func TestJobShowWatchStopsPollingFinishedJob(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFastPolling(20))
	env.login(t)
	env.backend.AddJob(api.Job{JobID: "job-7", JobType: "render", Status: api.JobStatusSucceeded})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := env.runWith(t, ctx, nil, "jobs", "show", "job-7", "--watch"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := env.backend.Count(http.MethodGet, "/admin/jobs/job-7"); n != 1 {
		t.Fatalf("expected a single fetch for a finished job, got %d", n)
	}
}

func TestJobsListWatchRefreshesUntilCancelled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFastPolling(20))
	env.login(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		env.backend.AddJob(api.Job{JobID: "job-new", JobType: "tts", Status: api.JobStatusPending})
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	out, _, err := env.runWith(t, ctx, nil, "jobs", "list", "--watch")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, "job-1", "job-new")
	if strings.Count(out, "--- ") < 2 {
		t.Fatalf("expected several redraws:\n%s", out)
	}
}

func TestDashboardWatchRendersBothPanels(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFastPolling(20))
	env.login(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	out, _, err := env.runWith(t, ctx, nil, "dashboard", "--watch")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, "3 (2 active)", "job-3", "Ctrl-C to stop")
}

func ptrTo[T any](v T) *T {
	return &v
}
