// Package robots implements the robots.txt policy switch of the crawler.
package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Policy decides whether a URL of the crawled host may be fetched.
//
// When compliance is disabled every URL is allowed. When enabled, rules are
// fetched once per host and cached; a robots.txt that cannot be fetched or
// parsed allows everything.
type Policy struct {
	client    *http.Client
	userAgent string
	respect   bool
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// Option configures a Policy.
type Option func(*Policy)

// WithHTTPClient sets the client used to fetch robots.txt.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Policy) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = l
	}
}

// New creates a Policy for userAgent. respect toggles compliance.
func New(userAgent string, respect bool, opts ...Option) *Policy {
	p := &Policy{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
		respect:   respect,
		logger:    slog.Default(),
		cache:     make(map[string]*robotstxt.RobotsData),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Respect reports whether compliance is enabled.
func (p *Policy) Respect() bool {
	return p.respect
}

// Allowed reports whether rawURL may be fetched.
func (p *Policy) Allowed(ctx context.Context, rawURL string) bool {
	if !p.respect {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return false
	}

	data := p.rules(ctx, u)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, p.userAgent)
}

// CrawlDelay returns the Crawl-delay that applies to rawURL's host, or 0.
func (p *Policy) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	if !p.respect {
		return 0
	}
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return 0
	}
	if data := p.rules(ctx, u); data != nil {
		return data.FindGroup(p.userAgent).CrawlDelay
	}
	return 0
}

// rules returns the cached rules for u's host, fetching them on first use.
// nil means no restrictions.
func (p *Policy) rules(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	p.mu.Lock()
	defer p.mu.Unlock()

	if data, ok := p.cache[key]; ok {
		return data
	}

	data, err := p.fetch(ctx, key+"/robots.txt")
	if err != nil {
		p.logger.Warn("robots.txt unavailable, allowing all", "host", u.Host, "error", err)
		data = nil
	}
	p.cache[key] = data
	return data
}

func (p *Policy) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
