package frontier

import (
	"slices"
	"sync"
)

// Frontier is a FIFO queue of normalized URLs plus the set of URLs that
// have ever been enqueued.
//
// The seen-set only grows. Enqueue checks and updates it under the same
// lock that guards the queue, so concurrent callers still enqueue each URL
// at most once.
type Frontier struct {
	mu sync.Mutex

	// queue holds pending URLs; queue[head:] is the live part.
	queue []string
	head  int

	// seen contains every URL that was enqueued at least once.
	seen map[string]struct{}
}

// New creates an empty Frontier.
func New() *Frontier {
	return &Frontier{
		queue: make([]string, 0),
		seen:  make(map[string]struct{}),
	}
}

// Restore rebuilds a Frontier from a saved queue and seen-set.
// Queued URLs missing from seen are added to it.
func Restore(queue, seen []string) *Frontier {
	f := New()
	for _, u := range seen {
		f.seen[u] = struct{}{}
	}
	for _, u := range queue {
		f.seen[u] = struct{}{}
		f.queue = append(f.queue, u)
	}
	return f
}

// Enqueue appends url unless it has been seen before.
// It reports whether the URL was added.
func (f *Frontier) Enqueue(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[url]; ok {
		return false
	}
	f.seen[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Dequeue pops the head of the queue. ok is false when the queue is empty.
func (f *Frontier) Dequeue() (url string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head >= len(f.queue) {
		return "", false
	}

	url = f.queue[f.head]
	f.queue[f.head] = ""
	f.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if f.head > 1024 && f.head*2 > len(f.queue) {
		f.queue = append(f.queue[:0:0], f.queue[f.head:]...)
		f.head = 0
	}

	return url, true
}

// Requeue puts a dequeued URL back at the head of the queue.
// It is used when a crawl stops after popping a URL but before processing
// it, so a saved frontier does not lose that URL. The seen-set is unchanged.
func (f *Frontier) Requeue(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen[url] = struct{}{}
	if f.head > 0 {
		f.head--
		f.queue[f.head] = url
		return
	}
	f.queue = slices.Insert(f.queue, 0, url)
}

// Seen reports whether url has ever been enqueued.
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.seen[url]
	return ok
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queue) - f.head
}

// SeenCount returns the size of the seen-set.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.seen)
}

// Pending returns a copy of the pending URLs in dequeue order.
func (f *Frontier) Pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.queue[f.head:])
}

// SeenURLs returns the seen-set as a sorted slice.
func (f *Frontier) SeenURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	urls := make([]string, 0, len(f.seen))
	for u := range f.seen {
		urls = append(urls, u)
	}
	slices.Sort(urls)
	return urls
}
