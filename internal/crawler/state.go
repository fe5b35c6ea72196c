package crawler

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/sitecrawl/internal/frontier"
	"github.com/nao1215/sitecrawl/internal/model"
)

// Store maps normalized URLs to their results. A URL's result is written
// at most once.
type Store struct {
	mu      sync.RWMutex
	results map[string]model.Result
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{results: make(map[string]model.Result)}
}

// PutIfAbsent records r for url unless url already has a result.
// It reports whether r was stored.
func (s *Store) PutIfAbsent(url string, r model.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[url]; ok {
		return false
	}
	s.results[url] = r
	return true
}

// Get returns the result recorded for url.
func (s *Store) Get(url string) (model.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[url]
	return r, ok
}

// Has reports whether url has a result.
func (s *Store) Has(url string) bool {
	_, ok := s.Get(url)
	return ok
}

// Len returns the number of results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.results)
}

// Copy returns a copy of all results.
func (s *Store) Copy() map[string]model.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.results)
}

// State is the mutable state of one crawl.
type State struct {
	seed string
	host string

	frontier *frontier.Frontier
	store    *Store

	// mu makes recording a result, enqueueing its links and counting it
	// one step as seen by Snapshot.
	mu        sync.Mutex
	processed int
	inflight  []string
}

// NewState creates the state of a fresh crawl with seed enqueued.
func NewState(seed string) (*State, error) {
	normalized, err := frontier.Normalize(seed, "")
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	host, err := frontier.Host(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}

	st := &State{
		seed:     normalized,
		host:     host,
		frontier: frontier.New(),
		store:    NewStore(),
	}
	st.frontier.Enqueue(normalized)
	return st, nil
}

// RestoreState rebuilds a State from a saved snapshot.
func RestoreState(snap *model.Snapshot) (*State, error) {
	host, err := frontier.Host(snap.Seed)
	if err != nil {
		return nil, fmt.Errorf("invalid saved seed: %w", err)
	}

	store := NewStore()
	for u, r := range snap.Results {
		store.results[u] = r
	}

	return &State{
		seed:      snap.Seed,
		host:      host,
		frontier:  frontier.Restore(snap.Queue, snap.Seen),
		store:     store,
		processed: snap.Processed,
	}, nil
}

// Seed returns the normalized seed URL.
func (st *State) Seed() string { return st.seed }

// Host returns the only host the crawl may visit.
func (st *State) Host() string { return st.host }

// Frontier returns the frontier.
func (st *State) Frontier() *frontier.Frontier { return st.frontier }

// Store returns the result store.
func (st *State) Store() *Store { return st.store }

// Processed returns the number of URLs processed so far.
func (st *State) Processed() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.processed
}

// next dequeues a URL and marks it in flight. When the queue is empty,
// drained reports whether no URL is in flight either, so no later
// completion can refill the queue.
func (st *State) next() (u string, ok, drained bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	u, ok = st.frontier.Dequeue()
	if ok {
		st.inflight = append(st.inflight, u)
		return u, true, false
	}
	return "", false, len(st.inflight) == 0
}

// requeue returns an in-flight URL to the head of the frontier.
func (st *State) requeue(u string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.dropInflight(u)
	st.frontier.Requeue(u)
}

// release drops an in-flight URL that will not be processed.
func (st *State) release(u string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.dropInflight(u)
}

// complete records r for u, enqueues links and counts u as processed.
// It reports whether r was stored and the processed count afterwards.
// Links are only enqueued when r is stored.
func (st *State) complete(u string, r model.Result, links []string) (bool, int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.dropInflight(u)
	if !st.store.PutIfAbsent(u, r) {
		return false, st.processed
	}
	for _, l := range links {
		st.frontier.Enqueue(l)
	}
	st.processed++
	return true, st.processed
}

func (st *State) dropInflight(u string) {
	if i := slices.Index(st.inflight, u); i >= 0 {
		st.inflight = slices.Delete(st.inflight, i, i+1)
	}
}

// Snapshot returns a detached copy of the state. URLs in flight are put at
// the head of the saved queue.
func (st *State) Snapshot(final bool) *model.Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	queue := slices.Concat(st.inflight, st.frontier.Pending())

	return &model.Snapshot{
		Seed:      st.seed,
		Results:   st.store.Copy(),
		Queue:     queue,
		Seen:      st.frontier.SeenURLs(),
		Processed: st.processed,
		Final:     final,
		TakenAt:   time.Now(),
	}
}
