// Package model defines the data structures shared by the crawler, the
// snapshot writers and the crawl-state database.
//
// This package contains the following main types:
//   - Result: the single record kept for every URL the crawler dequeued
//   - Status: the outcome class of a Result
//   - Snapshot: a point-in-time copy of the whole crawl state
//
// The models are serializable to JSON; the field names of Result are the
// on-disk format of the snapshot file.
package model
