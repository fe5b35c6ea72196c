// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls every page of one website breadth-first, extracts the
// main text of each HTML page and saves the results as a JSON snapshot
// that is rewritten at regular checkpoints.
//
// Usage:
//
//	sitecrawl crawl https://example.com/
//	sitecrawl crawl --resume https://example.com/
//	sitecrawl report crawl_data.json
//
// See --help for all available options.
package main

import "os"

// main is the entry point for sitecrawl.
func main() {
	os.Exit(Execute())
}
