// Package session holds the operator credential and resolved profile.
//
// Store is injected into the gateway client rather than read from a global.
// The credential is persisted through a Persister: FileStore writes
// <state_dir>/session.json under a flock-guarded lock file, MemoryStore keeps
// one-shot environment tokens out of the filesystem. Claims decoding is
// unverified and exists for display and pre-flight expiry checks only.
package session
