package model

import "time"

// Snapshot is a copy of the crawl state taken at a checkpoint.
// It is detached from the live state: writers may read it from other
// goroutines while the crawl continues.
type Snapshot struct {
	// Seed is the normalized seed URL the crawl started from.
	Seed string

	// Results maps normalized URL to its result.
	Results map[string]Result

	// Queue is the pending frontier in dequeue order.
	Queue []string

	// Seen is every URL ever enqueued.
	Seen []string

	// Processed is the number of URLs processed so far.
	Processed int

	// Final is true for the snapshot written at termination.
	Final bool

	// TakenAt is when the snapshot was taken.
	TakenAt time.Time
}

// CountByStatus returns the number of results per status.
func (s *Snapshot) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, r := range s.Results {
		counts[r.Status]++
	}
	return counts
}
