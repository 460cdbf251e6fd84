// Package preflight provides readiness checks for the local state
// directories, the admin backend and the stored credential.
//
// "shortsadmin doctor" runs RunAll and prints one line per Result. The
// session checks are chained: the backend is only asked about the operator's
// role once the token passes local validation.
package preflight
