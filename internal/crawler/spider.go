package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/extract"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
)

// DefaultCheckpointInterval is the number of processed URLs between snapshots.
const DefaultCheckpointInterval = 200

var (
	// ErrFatal wraps a failure of the crawl loop itself, as opposed to the
	// failure of a single URL which is recorded as a result.
	ErrFatal = errors.New("crawl aborted")

	// ErrSeedDisallowed is returned when robots.txt forbids the seed URL.
	ErrSeedDisallowed = errors.New("seed URL is disallowed by robots.txt")
)

// Outcome is how a crawl ended.
type Outcome int

const (
	// OutcomeCompleted means the frontier was drained or the page limit reached.
	OutcomeCompleted Outcome = iota

	// OutcomeInterrupted means the context was cancelled before the frontier was drained.
	OutcomeInterrupted
)

// String returns a human-readable name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Summary describes a finished crawl.
type Summary struct {
	Outcome Outcome

	// Processed is the number of URLs processed, including earlier runs of a resumed crawl.
	Processed int

	// ProcessedThisRun counts only this run.
	ProcessedThisRun int

	// Visited is the number of distinct URLs ever enqueued.
	Visited int

	// Pending is the number of URLs left in the frontier.
	Pending int

	// LimitReached is true when the crawl stopped at the page limit.
	LimitReached bool

	Elapsed time.Duration
}

// Checkpointer persists snapshots.
type Checkpointer interface {
	Checkpoint(ctx context.Context, snap *model.Snapshot) error
}

// Allower decides whether a URL may be fetched.
type Allower interface {
	Allowed(ctx context.Context, url string) bool
}

// Spider runs the crawl loop.
type Spider struct {
	fetcher   fetcher.Fetcher
	extractor *extract.Extractor
	parser    *Parser

	pacer        fetcher.Pacer
	robots       Allower
	checkpointer Checkpointer

	checkpointInterval int
	maxPages           int
	workers            int

	logger *slog.Logger

	// checkpointMu orders snapshots so a newer one is never overwritten by an older one.
	checkpointMu sync.Mutex
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithPacer sets the pacer awaited before every fetch.
func WithPacer(p fetcher.Pacer) SpiderOption {
	return func(s *Spider) {
		s.pacer = p
	}
}

// WithRobots sets the robots.txt policy. nil allows everything.
func WithRobots(a Allower) SpiderOption {
	return func(s *Spider) {
		s.robots = a
	}
}

// WithCheckpointer sets where snapshots go.
func WithCheckpointer(c Checkpointer) SpiderOption {
	return func(s *Spider) {
		s.checkpointer = c
	}
}

// WithCheckpointInterval sets the number of processed URLs between snapshots.
func WithCheckpointInterval(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.checkpointInterval = n
		}
	}
}

// WithMaxPages stops the crawl after n processed URLs. 0 means unlimited.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithWorkers sets the number of concurrent fetch workers.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = l
	}
}

// NewSpider creates a Spider fetching with f and extracting with ex.
func NewSpider(f fetcher.Fetcher, ex *extract.Extractor, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:            f,
		extractor:          ex,
		parser:             NewParser(),
		pacer:              fetcher.NewDelayPacer(0),
		checkpointInterval: DefaultCheckpointInterval,
		workers:            1,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl runs the loop over st until the frontier is empty, the page limit
// is reached or ctx is cancelled. A final snapshot is always attempted.
// The returned error is non-nil only for ErrSeedDisallowed and ErrFatal.
func (s *Spider) Crawl(ctx context.Context, st *State) (summary *Summary, err error) {
	start := time.Now()
	before := st.Processed()

	if st.Processed() == 0 && st.Store().Len() == 0 && !s.allowed(ctx, st.Seed()) {
		return nil, fmt.Errorf("%w: %s", ErrSeedDisallowed, st.Seed())
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("crawl loop panicked, saving state", "panic", r)
			s.checkpoint(ctx, st, true)
			summary = nil
			err = fmt.Errorf("%w: %v", ErrFatal, r)
		}
	}()

	var outcome Outcome
	var limit bool
	if s.workers > 1 {
		outcome, limit = s.runParallel(ctx, st)
	} else {
		outcome, limit = s.runSerial(ctx, st)
	}

	s.logger.Info("crawl finished", "outcome", outcome.String(), "processed", st.Processed())
	s.checkpoint(ctx, st, true)

	return &Summary{
		Outcome:          outcome,
		Processed:        st.Processed(),
		ProcessedThisRun: st.Processed() - before,
		Visited:          st.Frontier().SeenCount(),
		Pending:          st.Frontier().Len(),
		LimitReached:     limit,
		Elapsed:          time.Since(start),
	}, nil
}

// runSerial processes one URL at a time in strict FIFO order.
func (s *Spider) runSerial(ctx context.Context, st *State) (Outcome, bool) {
	for {
		if ctx.Err() != nil {
			return OutcomeInterrupted, false
		}
		if s.limitReached(st.Processed()) {
			return OutcomeCompleted, true
		}

		u, ok, _ := st.next()
		if !ok {
			return OutcomeCompleted, false
		}
		if st.Store().Has(u) {
			st.release(u)
			continue
		}

		if err := s.pacer.Wait(ctx); err != nil {
			st.requeue(u)
			return OutcomeInterrupted, false
		}

		stored, n, interrupted := s.process(ctx, st, u)
		if interrupted {
			return OutcomeInterrupted, false
		}
		if stored && n%s.checkpointInterval == 0 {
			s.checkpoint(ctx, st, false)
		}
	}
}

// runParallel dispatches URLs to up to s.workers goroutines. Fetches share
// the pacer, so with a rate-limiting pacer the request rate stays the same
// as with one worker.
func (s *Spider) runParallel(ctx context.Context, st *State) (Outcome, bool) {
	var g errgroup.Group
	g.SetLimit(s.workers)

	var active atomic.Int64
	wake := make(chan struct{}, 1)
	var interrupted atomic.Bool

	outcome, limit := OutcomeCompleted, false
loop:
	for {
		if ctx.Err() != nil || interrupted.Load() {
			outcome = OutcomeInterrupted
			break
		}
		if s.limitReached(st.Processed() + int(active.Load())) {
			limit = true
			break
		}

		u, ok, drained := st.next()
		if !ok {
			if drained {
				break
			}
			// A worker completing later sends on wake after its links are enqueued.
			select {
			case <-wake:
			case <-ctx.Done():
			}
			continue
		}
		if st.Store().Has(u) {
			st.release(u)
			continue
		}

		if err := s.pacer.Wait(ctx); err != nil {
			st.requeue(u)
			outcome = OutcomeInterrupted
			break loop
		}

		active.Add(1)
		g.Go(func() error {
			defer func() {
				active.Add(-1)
				select {
				case wake <- struct{}{}:
				default:
				}
			}()

			stored, n, stop := s.process(ctx, st, u)
			if stop {
				interrupted.Store(true)
				return nil
			}
			if stored && n%s.checkpointInterval == 0 {
				s.checkpoint(ctx, st, false)
			}
			return nil
		})
	}

	// In-flight fetches are allowed to finish.
	_ = g.Wait() //nolint:errcheck // workers never return errors
	return outcome, limit
}

func (s *Spider) limitReached(n int) bool {
	return s.maxPages > 0 && n >= s.maxPages
}

// process fetches u and records its result. interrupted is true when ctx
// was cancelled before u could be fetched; u is then back in the frontier.
func (s *Spider) process(ctx context.Context, st *State, u string) (stored bool, n int, interrupted bool) {
	s.logger.Info("crawling", "url", u, "n", st.Processed()+1)

	result, links, interrupted := s.visit(ctx, st, u)
	if interrupted {
		st.requeue(u)
		return false, st.Processed(), true
	}

	stored, n = st.complete(u, result, links)
	return stored, n, false
}

// visit produces the result of u and the links to enqueue. Failures of
// this one URL, panics included, become its result.
func (s *Spider) visit(ctx context.Context, st *State, u string) (result model.Result, links []string, interrupted bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("processing panicked", "url", u, "panic", r)
			result = model.NewProcessingError(fmt.Sprintf("panic: %v", r))
			links = nil
			interrupted = false
		}
	}()

	resp, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return model.Result{}, nil, true
		}
		s.logger.Warn("fetch failed", "url", u, "error", err)
		return model.NewFetchError(err.Error()), nil, false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := &fetcher.Error{Kind: fetcher.KindHTTPStatus, StatusCode: resp.StatusCode, URL: u}
		s.logger.Warn("fetch failed", "url", u, "error", fe)
		return model.NewFetchError(fe.Error()), nil, false
	}

	if !resp.IsHTML() {
		s.logger.Warn("skipping non-HTML", "url", u, "content_type", resp.ContentType)
		return model.NewSkippedNonHTML(resp.ContentType), nil, false
	}

	doc, err := s.parser.Parse(resp.Body, resp.Encoding)
	if err != nil {
		s.logger.Warn("parse failed", "url", u, "error", err)
		return model.NewProcessingError(err.Error()), nil, false
	}

	page := s.extractor.Extract(doc)
	s.logger.Debug("extracted", "url", u, "method", page.Method, "chars", len(page.Text))

	for _, l := range Harvest(doc, u, st.Host()) {
		if st.Frontier().Seen(l) {
			continue
		}
		if !s.allowed(ctx, l) {
			s.logger.Debug("disallowed by robots.txt", "url", l)
			continue
		}
		links = append(links, l)
	}

	return model.NewSuccess(page.Text, page.Title, page.Method), links, false
}

func (s *Spider) allowed(ctx context.Context, u string) bool {
	if s.robots == nil {
		return true
	}
	return s.robots.Allowed(context.WithoutCancel(ctx), u)
}

// checkpoint hands a snapshot to the checkpointer. Failures are logged and
// the crawl goes on.
func (s *Spider) checkpoint(ctx context.Context, st *State, final bool) {
	if s.checkpointer == nil {
		return
	}

	s.checkpointMu.Lock()
	defer s.checkpointMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("checkpoint panicked", "panic", r)
		}
	}()

	snap := st.Snapshot(final)
	if err := s.checkpointer.Checkpoint(context.WithoutCancel(ctx), snap); err != nil {
		s.logger.Error("checkpoint failed", "processed", snap.Processed, "error", err)
		return
	}
	s.logger.Info("checkpoint saved", "results", len(snap.Results), "processed", snap.Processed, "final", final)
	if final {
		counts := snap.CountByStatus()
		s.logger.Info("crawl results",
			"success", counts[model.StatusSuccess],
			"skipped_non_html", counts[model.StatusSkippedNonHTML],
			"error", counts[model.StatusFetchError],
			"processing_error", counts[model.StatusProcessingError],
		)
	}
}
