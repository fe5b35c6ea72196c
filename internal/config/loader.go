package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitecrawl"

// xdgConfigFile is the configuration file name inside XDGConfigDir.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the .sitecrawl configuration file.
type File struct {
	// Crawl holds crawl settings. Zero values leave the defaults in place.
	Crawl CrawlSettings `yaml:"crawl,omitempty"`

	// Extract overrides the extraction policy.
	Extract ExtractConfig `yaml:"extract,omitempty"`
}

// CrawlSettings mirrors the crawl-related fields of Config.
type CrawlSettings struct {
	Seed               string            `yaml:"seed,omitempty"`
	Output             string            `yaml:"output,omitempty"`
	StateDir           string            `yaml:"stateDir,omitempty"`
	Delay              time.Duration     `yaml:"delay,omitempty"`
	Timeout            time.Duration     `yaml:"timeout,omitempty"`
	CheckpointInterval int               `yaml:"checkpointInterval,omitempty"`
	UserAgent          string            `yaml:"userAgent,omitempty"`
	MaxBodySize        int64             `yaml:"maxBodySize,omitempty"`
	MaxPages           int               `yaml:"maxPages,omitempty"`
	RespectRobots      *bool             `yaml:"respectRobots,omitempty"`
	Workers            int               `yaml:"workers,omitempty"`
	Retries            *int              `yaml:"retries,omitempty"`
	RetryBackoff       time.Duration     `yaml:"retryBackoff,omitempty"`
	Cookie             string            `yaml:"cookie,omitempty"`
	Headers            map[string]string `yaml:"headers,omitempty"`
	Proxy              string            `yaml:"proxy,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if f.Crawl.Headers == nil {
		f.Crawl.Headers = make(map[string]string)
	}

	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .sitecrawl in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .sitecrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if p := filepath.Join(XDGConfigDir(), xdgConfigFile); fileExists(p) {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// Apply copies every non-zero setting of the file into c.
func (f *File) Apply(c *Config) {
	s := f.Crawl

	if s.Seed != "" {
		c.Seed = s.Seed
	}
	if s.Output != "" {
		c.OutputPath = s.Output
	}
	if s.StateDir != "" {
		c.StateDir = s.StateDir
	}
	if s.Delay != 0 {
		c.CrawlDelay = s.Delay
	}
	if s.Timeout != 0 {
		c.Timeout = s.Timeout
	}
	if s.CheckpointInterval != 0 {
		c.CheckpointInterval = s.CheckpointInterval
	}
	if s.UserAgent != "" {
		c.UserAgent = s.UserAgent
	}
	if s.MaxBodySize != 0 {
		c.MaxBodySize = s.MaxBodySize
	}
	if s.MaxPages != 0 {
		c.MaxPages = s.MaxPages
	}
	if s.RespectRobots != nil {
		c.RespectRobots = *s.RespectRobots
	}
	if s.Workers != 0 {
		c.Workers = s.Workers
	}
	if s.Retries != nil {
		c.Retries = *s.Retries
	}
	if s.RetryBackoff != 0 {
		c.RetryBackoff = s.RetryBackoff
	}
	if s.Cookie != "" {
		c.Cookie = s.Cookie
	}
	if len(s.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		for k, v := range s.Headers {
			c.Headers[k] = v
		}
	}
	if s.Proxy != "" {
		c.ProxyAddress = s.Proxy
	}

	e := f.Extract
	if e.LandmarkID != "" {
		c.Extract.LandmarkID = e.LandmarkID
	}
	if e.WrapperClass != "" {
		c.Extract.WrapperClass = e.WrapperClass
	}
	if len(e.WrapperBoilerplate) > 0 {
		c.Extract.WrapperBoilerplate = e.WrapperBoilerplate
	}
	if len(e.FallbackBoilerplate) > 0 {
		c.Extract.FallbackBoilerplate = e.FallbackBoilerplate
	}
	if len(e.FallbackClassPatterns) > 0 {
		c.Extract.FallbackClassPatterns = e.FallbackClassPatterns
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
