// Package database stores resumable crawl state in SQLite.
//
// Every checkpoint of a crawl writes its results, the pending frontier in
// dequeue order, the seen set and the processed count in one transaction,
// keyed by the normalized seed URL. A later run with the same seed can
// load that state and continue where the previous one stopped.
//
// The driver is modernc.org/sqlite, a CGO-free SQLite implementation.
package database
