package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Completion describes a finished crawl for the terminal summary.
type Completion struct {
	// Outcome is "completed" or "interrupted".
	Outcome string

	// Processed counts every URL with a result, earlier runs included.
	Processed int

	// ProcessedThisRun counts only the URLs processed by this run.
	ProcessedThisRun int

	// Visited is the number of distinct URLs discovered.
	Visited int

	// Pending is the number of URLs left in the frontier.
	Pending int

	LimitReached bool
	Elapsed      time.Duration

	// Output is where the snapshot was written.
	Output string
}

// SimpleWriter prints the closing lines of a crawl.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs c in human-readable format.
func (w *SimpleWriter) Write(c Completion) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("-", 30))
	sb.WriteString("\n")

	switch {
	case c.Outcome == "interrupted":
		sb.WriteString("Crawl interrupted. ")
		fmt.Fprintf(&sb, "%d URL(s) left in the frontier.\n", c.Pending)
	case c.LimitReached:
		sb.WriteString("Crawl stopped at the page limit.\n")
	default:
		sb.WriteString("Crawling finished (queue is empty).\n")
	}

	fmt.Fprintf(&sb, "Visited %d unique URLs.\n", c.Visited)
	fmt.Fprintf(&sb, "Processed %d pages (including skips/errors)", c.Processed)
	if c.ProcessedThisRun != c.Processed {
		fmt.Fprintf(&sb, ", %d in this run", c.ProcessedThisRun)
	}
	sb.WriteString(".\n")

	secs := c.Elapsed.Seconds()
	fmt.Fprintf(&sb, "Total crawling time: %.2f seconds (%.1f minutes)\n", secs, secs/60)
	if c.ProcessedThisRun > 0 {
		fmt.Fprintf(&sb, "Average time per page: %.2f seconds\n", secs/float64(c.ProcessedThisRun))
	}
	if c.Output != "" {
		fmt.Fprintf(&sb, "Data saved to %s\n", c.Output)
	}

	return w.output.Write([]byte(sb.String()))
}
