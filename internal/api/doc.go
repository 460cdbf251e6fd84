// Package api defines the wire-format types exchanged with the admin backend.
//
// # Key Types
//
// User, Episode, Job: admin projections returned by the list and detail
// endpoints. Optional backend fields are pointers so an absent value renders
// as "-" rather than a zero value.
//
// CreditUserSummary/CreditUserDetail/CreditLedgerEntry: the ledger-backed
// credit flow. Ledger entries are append-only and newest first.
//
// Page[T]: a {items,total,limit,offset} window with the pagination predicates
// every list view shares.
//
// # Design Notes
//
// JSON tags follow the backend's snake_case. Timestamps accept both RFC3339
// and the naive ISO form the backend emits for database columns, interpreted
// as UTC. Job results are kept as json.RawMessage because their shape depends
// on job_type; PickProgress reads the conventional progress fields.
package api
