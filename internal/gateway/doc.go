// Package gateway is the single call site for backend HTTP requests.
//
// Client attaches the bearer credential from an injected TokenSource, stamps
// every request with an X-Request-ID, and applies an optional shared rate
// limit so concurrent watch loops cannot flood the backend. Failures surface
// as *APIError: Status 0 with Transport set when no response arrived,
// otherwise the HTTP status and the backend's detail message. Calls are
// fire-once; retry policy belongs to callers.
package gateway
