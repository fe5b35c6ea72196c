package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultCrawlDelay is awaited before every fetch.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultTimeout bounds a single fetch, including reading the body.
	DefaultTimeout = 25 * time.Second

	// DefaultCheckpointInterval is the number of processed URLs between
	// periodic snapshots.
	DefaultCheckpointInterval = 200

	// DefaultUserAgent is the client label sent with every request.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultWorkers is the number of concurrent fetch workers.
	// One worker gives strict breadth-first order.
	DefaultWorkers = 1

	// DefaultRetries is the number of extra attempts for transient fetch failures.
	DefaultRetries = 2

	// DefaultRetryBackoff is the base delay of the exponential retry backoff.
	DefaultRetryBackoff = 1 * time.Second

	// DefaultOutputFile is the snapshot file written in the working directory.
	DefaultOutputFile = "crawl_data.json"

	// StateFileName is the SQLite crawl-state database inside StateDir.
	StateFileName = "sitecrawl.db"
)

// Config holds every option of a crawl.
// It is populated from defaults, then the configuration file, then CLI
// flags, and passed explicitly to the components that need it.
type Config struct {
	// Seed is the absolute http(s) URL the crawl starts from.
	// Its host is the only host that will be crawled.
	Seed string

	// OutputPath is the JSON snapshot file. It is fully rewritten on every checkpoint.
	OutputPath string

	// StateDir holds the SQLite crawl-state database used by Resume.
	StateDir string

	// SaveState enables writing crawl state to StateDir at each checkpoint.
	SaveState bool

	// Resume restores results and frontier from StateDir before crawling.
	Resume bool

	// CrawlDelay is the fixed politeness delay awaited before every fetch.
	// With more than one worker it becomes the interval of a shared rate limiter.
	CrawlDelay time.Duration

	// Timeout bounds each fetch.
	Timeout time.Duration

	// CheckpointInterval is the number of processed URLs between snapshots.
	CheckpointInterval int

	// UserAgent is the client label sent with every fetch.
	UserAgent string

	// MaxBodySize caps the bytes read from a response body.
	MaxBodySize int64

	// MaxPages stops the crawl after this many processed URLs. 0 means unlimited.
	MaxPages int

	// RespectRobots enables robots.txt compliance.
	RespectRobots bool

	// Workers is the number of concurrent fetch workers.
	Workers int

	// Retries is the number of extra attempts for transient fetch failures.
	// 0 records every failure after a single attempt.
	Retries int

	// RetryBackoff is the base delay between retries; it doubles per attempt.
	RetryBackoff time.Duration

	// Cookie is sent with every request when set ("name=value; name2=value2").
	Cookie string

	// Headers are extra request headers.
	Headers map[string]string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log handler to JSON.
	LogJSON bool

	// ConfigFilePath is the configuration file in use, if any.
	ConfigFilePath string

	// Extract overrides the content extraction policy.
	Extract ExtractConfig
}

// ExtractConfig overrides the extraction policy. Empty fields keep the
// built-in defaults.
type ExtractConfig struct {
	// LandmarkID is the id of the <main> element that marks clean content.
	LandmarkID string `yaml:"landmarkID,omitempty"`

	// WrapperClass is the class of the <div> that wraps page content.
	WrapperClass string `yaml:"wrapperClass,omitempty"`

	// WrapperBoilerplate are CSS selectors removed inside the wrapper.
	WrapperBoilerplate []string `yaml:"wrapperBoilerplate,omitempty"`

	// FallbackBoilerplate are CSS selectors removed from the body fallback.
	FallbackBoilerplate []string `yaml:"fallbackBoilerplate,omitempty"`

	// FallbackClassPatterns are regular expressions; elements with a
	// matching class are removed from the body fallback.
	FallbackClassPatterns []string `yaml:"fallbackClassPatterns,omitempty"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputPath:         DefaultOutputFile,
		StateDir:           XDGDataDir(),
		SaveState:          true,
		CrawlDelay:         DefaultCrawlDelay,
		Timeout:            DefaultTimeout,
		CheckpointInterval: DefaultCheckpointInterval,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		RespectRobots:      true,
		Workers:            DefaultWorkers,
		Retries:            DefaultRetries,
		RetryBackoff:       DefaultRetryBackoff,
		Headers:            make(map[string]string),
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
// On Linux: ~/.config/sitecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return ErrNoSeed
	}

	u, err := url.Parse(c.Seed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeed
	}

	if c.OutputPath == "" {
		return ErrNoOutput
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.CheckpointInterval <= 0 {
		return ErrInvalidCheckpointInterval
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.Retries < 0 || c.RetryBackoff < 0 {
		return ErrInvalidRetries
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.Resume && c.StateDir == "" {
		return ErrResumeWithoutState
	}

	return nil
}

// StatePath returns the path of the crawl-state database.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, StateFileName)
}
