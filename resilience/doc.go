// Package resilience holds the two guards the catalog client puts around
// each remote call: Retry, which re-attempts retryable failures with
// exponential backoff while the catalog is reachable, and RateLimiter, a
// token bucket that keeps the client under the API's request quota.
package resilience
