// Package admin is the console's service layer over the admin REST API.
//
// Queries return backend payloads as api types; the list ones back the
// listview views returned by UsersView, JobsView and friends. Mutations are
// single requests: on success each marks the cache families declared in
// Invalidates stale (which wakes any view following them) and every attempt
// is written to the action journal with its request ID and outcome.
// Preconditions such as an empty ledger reason or upload key fail with
// ErrValidation before anything is sent.
package admin
