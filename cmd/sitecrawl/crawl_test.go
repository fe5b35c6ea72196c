package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	sclog "github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "output", shorthand: "o", defValue: config.DefaultOutputFile},
		{name: "delay", shorthand: "d", defValue: "500ms"},
		{name: "timeout", shorthand: "t", defValue: "25s"},
		{name: "checkpoint", shorthand: "n", defValue: "200"},
		{name: "workers", shorthand: "w", defValue: "1"},
		{name: "resume", shorthand: "r", defValue: "false"},
		{name: "respect-robots", defValue: "true"},
		{name: "retries", defValue: "2"},
	}
	for _, f := range flags {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("expected %s flag", f.name)
			}
			if flag.Shorthand != f.shorthand || flag.DefValue != f.defValue {
				t.Errorf("got shorthand %q default %q", flag.Shorthand, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Seed != "https://example.com/" {
			t.Errorf("Seed = %q", cfg.Seed)
		}
		if cfg.CrawlDelay != config.DefaultCrawlDelay || !cfg.RespectRobots || !cfg.SaveState || cfg.Resume {
			t.Errorf("unexpected defaults %+v", cfg)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults must validate: %v", err)
		}
	})

	t.Run("flags override", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{
			"--delay", "2s",
			"--checkpoint", "10",
			"-w", "3",
			"--respect-robots=false",
			"--no-state",
			"--header", "X-Team=docs",
			"--cookie", "sid=1",
		}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.CrawlDelay != 2*time.Second || cfg.CheckpointInterval != 10 || cfg.Workers != 3 {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.RespectRobots || cfg.SaveState {
			t.Error("expected robots and state saving to be disabled")
		}
		if cfg.Headers["X-Team"] != "docs" || cfg.Cookie != "sid=1" {
			t.Errorf("unexpected headers %v cookie %q", cfg.Headers, cfg.Cookie)
		}
	})

	t.Run("config file then flags", func(t *testing.T) {
		t.Parallel()

		configFile := filepath.Join(t.TempDir(), ".sitecrawl")
		content := `crawl:
  seed: "https://from-file.test/"
  delay: 3s
  workers: 2
  respectRobots: false
extract:
  landmarkID: "content"
`
		if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", configFile, "--workers", "4"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.Seed != "https://from-file.test/" || cfg.CrawlDelay != 3*time.Second {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if cfg.Workers != 4 {
			t.Errorf("flag must override file, got %d workers", cfg.Workers)
		}
		if cfg.RespectRobots {
			t.Error("expected respectRobots from file")
		}
		if cfg.Extract.LandmarkID != "content" || cfg.ConfigFilePath != configFile {
			t.Errorf("unexpected extract config %+v", cfg.Extract)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, nil); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		t.Parallel()

		configFile := filepath.Join(t.TempDir(), ".sitecrawl")
		if err := os.WriteFile(configFile, []byte("invalid: yaml: content: ["), 0o600); err != nil {
			t.Fatal(err)
		}
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", configFile}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, nil); err == nil {
			t.Error("expected error for invalid config file")
		}
	})
}

// newTestSite serves a small site with a robots.txt that hides /private.
func newTestSite(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><head><title>Home</title></head><body>
				<nav>Menu</nav><main id="main-content">Hello World</main>
				<a href="/about">About</a><a href="/private/x">Secret</a><a href="/logo.png">Logo</a>
			</body></html>`)
		case "/about":
			fmt.Fprint(w, `<html><head><title>About</title></head><body><main>About us</main></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testConfig(t *testing.T, seed string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Seed = seed
	cfg.OutputPath = filepath.Join(dir, "crawl_data.json")
	cfg.StateDir = filepath.Join(dir, "state")
	cfg.CrawlDelay = 0
	cfg.Retries = 0
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("completed crawl writes snapshot and state", func(t *testing.T) {
		t.Parallel()

		srv, _ := newTestSite(t)
		cfg := testConfig(t, srv.URL)

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, sclog.Discard(), &out); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}

		results, err := report.ReadSnapshot(cfg.OutputPath)
		if err != nil {
			t.Fatalf("ReadSnapshot() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %v", results)
		}
		home := results[srv.URL+"/"]
		if home.Status != model.StatusSuccess || home.Text != "Hello World" || home.Title != "Home" {
			t.Errorf("unexpected home result %+v", home)
		}
		if about := results[srv.URL+"/about"]; about.Text != "About us" {
			t.Errorf("unexpected about result %+v", about)
		}

		db, err := database.Open(cfg.StateDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		snap, err := db.LoadState(context.Background(), srv.URL+"/")
		if err != nil {
			t.Fatalf("LoadState() error = %v", err)
		}
		if !snap.Final || snap.Processed != 2 || len(snap.Queue) != 0 {
			t.Errorf("unexpected saved state %+v", snap)
		}

		if !strings.Contains(out.String(), "Crawling finished (queue is empty).") {
			t.Errorf("expected completion summary, got:\n%s", out.String())
		}
	})

	t.Run("interrupted crawl resumes", func(t *testing.T) {
		t.Parallel()

		srv, hits := newTestSite(t)
		cfg := testConfig(t, srv.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var out bytes.Buffer
		err := runCrawl(ctx, cfg, sclog.Discard(), &out)
		if !errors.Is(err, errInterrupted) {
			t.Fatalf("expected errInterrupted, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("no page must be fetched after interruption, got %d", hits.Load())
		}
		results, err := report.ReadSnapshot(cfg.OutputPath)
		if err != nil {
			t.Fatalf("expected a final snapshot: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected empty snapshot, got %v", results)
		}

		cfg.Resume = true
		out.Reset()
		if err := runCrawl(context.Background(), cfg, sclog.Discard(), &out); err != nil {
			t.Fatalf("resumed runCrawl() error = %v", err)
		}
		if !strings.Contains(out.String(), "Resuming crawl: 0 pages done, 1 pending.") {
			t.Errorf("expected resume message, got:\n%s", out.String())
		}

		results, err = report.ReadSnapshot(cfg.OutputPath)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 2 {
			t.Errorf("expected 2 results after resume, got %d", len(results))
		}
	})

	t.Run("resume without saved state starts fresh", func(t *testing.T) {
		t.Parallel()

		srv, _ := newTestSite(t)
		cfg := testConfig(t, srv.URL)
		cfg.Resume = true

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, sclog.Discard(), &out); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if !strings.Contains(out.String(), "No saved crawl") {
			t.Errorf("expected fresh-start message, got:\n%s", out.String())
		}
	})

	t.Run("robots disabled follows every link", func(t *testing.T) {
		t.Parallel()

		srv, _ := newTestSite(t)
		cfg := testConfig(t, srv.URL)
		cfg.RespectRobots = false
		cfg.SaveState = false
		cfg.MaxPages = 10

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, sclog.Discard(), &out); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		results, err := report.ReadSnapshot(cfg.OutputPath)
		if err != nil {
			t.Fatal(err)
		}
		private := results[srv.URL+"/private/x"]
		if private.Status != model.StatusFetchError || !strings.HasPrefix(private.ErrorMessage, "404 Not Found") {
			t.Errorf("unexpected private result %+v", private)
		}
		if !strings.Contains(out.String(), "WARNING: robots.txt rules are ignored") {
			t.Error("expected robots warning")
		}
		if _, err := os.Stat(cfg.StateDir); !errors.Is(err, os.ErrNotExist) {
			t.Error("state directory must not be created without state saving")
		}
	})

	t.Run("invalid extraction settings", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t, "https://example.com/")
		cfg.Extract.FallbackBoilerplate = []string{"div[["}
		if err := runCrawl(context.Background(), cfg, sclog.Discard(), &bytes.Buffer{}); err == nil {
			t.Error("expected error for an invalid selector")
		}
	})
}

func TestRunCrawlCmdValidation(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()
	cmd.SetArgs([]string{"ftp://example.com/"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrInvalidSeed) {
		t.Errorf("expected ErrInvalidSeed, got %v", err)
	}
}
