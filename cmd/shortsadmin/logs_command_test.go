package main

import (
	"os"
	"strings"
	"testing"

	"shortsadmin/internal/logging"
)

func TestLogsPrintsTailAndFiltersByRequest(t *testing.T) {
	env := setupCLITestEnv(t)
	path := logging.FilePath(env.cfg)
	content := strings.Join([]string{
		"INFO mutation applied request_id=r-1",
		"WARN mutation failed request_id=r-2",
		"INFO mutation applied request_id=r-3",
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := env.run(t, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "request_id=r-2", "request_id=r-3")
	if strings.Contains(out, "request_id=r-1") {
		t.Fatalf("expected only two lines, got:\n%s", out)
	}

	out, _, err = env.run(t, "logs", "--request", "r-2")
	if err != nil {
		t.Fatalf("logs --request: %v", err)
	}
	if strings.TrimSpace(out) != "WARN mutation failed request_id=r-2" {
		t.Fatalf("unexpected filtered output:\n%s", out)
	}
}

func TestLogsMissingFilePrintsNothing(t *testing.T) {
	env := setupCLITestEnv(t)
	_ = os.Remove(logging.FilePath(env.cfg))

	out, _, err := env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}
