// Package querycache keys query results by identity and coordinates
// invalidation between mutations and the views showing their resources.
//
// Each fetch takes a Ticket from Begin; Commit refuses a value whose ticket is
// older than one already applied for the same key, so a slow response never
// overwrites a newer one. Invalidate marks every key under a family prefix
// stale, including fetches still in flight, and wakes subscribers so watch
// loops refetch without waiting for their next tick.
package querycache
