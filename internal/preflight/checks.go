package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shortsadmin/internal/gateway"
	"shortsadmin/internal/session"
)

const checkTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBackend calls the unauthenticated health endpoint with a short
// timeout.
func CheckBackend(ctx context.Context, backend Backend) Result {
	const name = "Backend"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	health, err := backend.Health(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if !strings.EqualFold(health.Status, "ok") {
		return Result{Name: name, Detail: fmt.Sprintf("status %q", health.Status)}
	}
	detail := "reachable"
	if health.App != "" {
		detail = fmt.Sprintf("%s (%s) reachable", health.App, health.Env)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckToken validates the stored credential locally.
func CheckToken(token string, now time.Time) Result {
	const name = "Session token"

	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "not logged in"}
	}
	claims, err := session.ValidateToken(token, now)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if claims.ExpiresAt.IsZero() {
		return Result{Name: name, Passed: true, Detail: "valid (no expiry)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("valid until %s", claims.ExpiresAt.Local().Format(time.DateTime))}
}

// CheckAdmin asks the backend who the token belongs to and requires the
// admin role.
func CheckAdmin(ctx context.Context, backend Backend) Result {
	const name = "Admin access"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	profile, err := backend.Me(checkCtx)
	switch {
	case gateway.IsUnauthorized(err):
		return Result{Name: name, Detail: "token rejected by backend (log in again)"}
	case err != nil:
		return Result{Name: name, Detail: summarizeError(err)}
	case !profile.IsAdmin():
		return Result{Name: name, Detail: fmt.Sprintf("%s has role %q", profile.Email, profile.Role)}
	}
	return Result{Name: name, Passed: true, Detail: profile.Email + " (admin)"}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (backend unreachable)"
	}
	return err.Error()
}
