// Package crawler drives a single-host crawl.
//
// # Components
//
//   - Parser: turns a fetched body into a queryable document, falling back
//     to a lenient parse when the strict one fails
//   - Harvest: collects the in-scope links of a document
//   - State: the frontier, the result store and the processed counter of
//     one crawl, owned by the Spider
//   - Spider: the crawl loop
//
// # Crawl loop
//
// The Spider dequeues one URL at a time, waits for the pacer, fetches the
// URL, and records exactly one result for it. HTML pages are parsed, their
// main content extracted and their links enqueued. Every CheckpointInterval
// processed URLs, and once more at termination, a snapshot of the State is
// handed to the Checkpointer.
//
// Cancelling the context stops the loop between iterations. A fetch that
// is already running is allowed to finish; a URL whose pacing wait was
// interrupted goes back to the head of the frontier so a resumed crawl
// picks it up first.
//
// # Usage
//
//	st, err := crawler.NewState("https://site.test/")
//	spider := crawler.NewSpider(f, ex, crawler.WithCheckpointer(w))
//	summary, err := spider.Crawl(ctx, st)
package crawler
