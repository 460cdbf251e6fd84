// Package poller runs cancellable repeating fetches bound to a view's
// lifetime.
//
// Start returns a Handle; stopping it is the only way a task ends short of
// context cancellation, and it guarantees no later delivery to the view even
// when a request was already in flight. Selection layers
// "poll only while something is selected" on top for detail views.
package poller
