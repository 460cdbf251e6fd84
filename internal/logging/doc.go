// Package logging assembles structured slog loggers used across shortsadmin.
//
// It owns the console/JSON handlers, level and output plumbing, and
// context helpers that tag log lines with the issuing view and the request ID
// sent to the backend. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
