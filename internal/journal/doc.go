// Package journal keeps a local SQLite record of the admin actions issued
// from this console: who ran what against which target, the request ID the
// backend saw, and whether it succeeded, partially succeeded, or failed.
//
// The journal is history only. Nothing reads it back to decide behaviour,
// and it never mirrors backend entities.
package journal
