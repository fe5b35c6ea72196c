// Package frontier holds the crawl frontier: URL canonicalization, the
// in-scope policy for a single allowed host, and the FIFO queue with its
// seen-set.
//
// # Identity
//
// Two links are the same crawl entity iff their normalized forms are equal.
// Normalization resolves relative references, drops the fragment, applies
// the safe purell canonicalizations (lowercase scheme and host, default
// port removal, dot-segment removal, escape normalization) and strips a
// single trailing slash unless the path is the root.
//
// # Ordering
//
// Frontier is strictly first-in-first-out, which makes the crawl a
// breadth-first traversal of the link graph in discovery order. A URL is
// enqueued at most once for the lifetime of the frontier.
package frontier
