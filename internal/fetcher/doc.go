// Package fetcher retrieves pages for the crawler.
//
// The Fetcher interface is the boundary between the crawl loop and the
// network: Fetch returns a Response for a 2xx answer and a typed *Error
// otherwise. HTTPFetcher is the net/http implementation; Retrier wraps any
// Fetcher with a status-aware retry policy, and the Pacer implementations
// space requests apart, either by a fixed delay or through a shared rate
// limiter when several workers fetch concurrently.
package fetcher
