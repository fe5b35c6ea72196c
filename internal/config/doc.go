// Package config provides the configuration of a crawl: defaults,
// validation, the optional YAML configuration file and the XDG directories
// used for crawl state.
package config
