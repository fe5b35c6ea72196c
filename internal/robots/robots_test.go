package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRobotsServer(t *testing.T, body string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestPolicy_Allowed(t *testing.T) {
	t.Parallel()

	const rules = `User-agent: *
Disallow: /private
Crawl-delay: 2

User-agent: sitecrawl
Disallow: /admin
`

	t.Run("disabled policy allows everything", func(t *testing.T) {
		t.Parallel()

		srv, hits := newRobotsServer(t, rules, http.StatusOK)
		p := New("sitecrawl/1.0", false)

		if !p.Allowed(context.Background(), srv.URL+"/admin") {
			t.Error("expected URL to be allowed")
		}
		if hits.Load() != 0 {
			t.Error("robots.txt must not be fetched when compliance is off")
		}
	})

	t.Run("agent specific group applies", func(t *testing.T) {
		t.Parallel()

		srv, _ := newRobotsServer(t, rules, http.StatusOK)
		p := New("sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)", true)

		if p.Allowed(context.Background(), srv.URL+"/admin/users") {
			t.Error("expected /admin to be disallowed")
		}
		if !p.Allowed(context.Background(), srv.URL+"/docs") {
			t.Error("expected /docs to be allowed")
		}
	})

	t.Run("wildcard group applies to other agents", func(t *testing.T) {
		t.Parallel()

		srv, _ := newRobotsServer(t, rules, http.StatusOK)
		p := New("otherbot", true)

		if p.Allowed(context.Background(), srv.URL+"/private/x") {
			t.Error("expected /private to be disallowed")
		}
		if got := p.CrawlDelay(context.Background(), srv.URL+"/"); got != 2*time.Second {
			t.Errorf("expected crawl delay 2s, got %v", got)
		}
	})

	t.Run("rules are fetched once per host", func(t *testing.T) {
		t.Parallel()

		srv, hits := newRobotsServer(t, rules, http.StatusOK)
		p := New("otherbot", true)

		for _, path := range []string{"/a", "/b", "/private"} {
			p.Allowed(context.Background(), srv.URL+path)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 robots.txt fetch, got %d", hits.Load())
		}
	})

	t.Run("missing robots.txt allows everything", func(t *testing.T) {
		t.Parallel()

		srv, _ := newRobotsServer(t, "", http.StatusNotFound)
		p := New("sitecrawl", true)

		if !p.Allowed(context.Background(), srv.URL+"/anything") {
			t.Error("expected URL to be allowed")
		}
	})

	t.Run("unreachable host fails open", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		p := New("sitecrawl", true, WithHTTPClient(&http.Client{Timeout: time.Second}))
		if !p.Allowed(context.Background(), addr+"/page") {
			t.Error("expected fail-open")
		}
		if p.CrawlDelay(context.Background(), addr+"/page") != 0 {
			t.Error("expected no crawl delay")
		}
	})
}
