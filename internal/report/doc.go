// Package report persists crawl snapshots and renders crawl summaries.
//
// JSONWriter writes the result map as one JSON object, replacing the
// target file atomically on every checkpoint. MarkdownWriter renders the
// per-status and per-method counts of a snapshot file, and SimpleWriter
// prints the closing lines of a crawl to the terminal.
//
// Snapshot sinks implement the Checkpoint method used by the crawl loop
// and can be combined with MultiCheckpointer.
package report
