package report

import (
	"cmp"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitecrawl/internal/model"
)

// statusOrder is the row order of the status table.
var statusOrder = []model.Status{
	model.StatusSuccess,
	model.StatusSkippedNonHTML,
	model.StatusFetchError,
	model.StatusProcessingError,
}

// Count is a labelled number.
type Count struct {
	Label string
	N     int
}

// Failure is a URL whose result is an error.
type Failure struct {
	URL     string
	Status  model.Status
	Message string
}

// Summary aggregates a result map for reporting.
type Summary struct {
	// Source names the snapshot the summary was built from.
	Source string

	Total int

	// Statuses counts results per status, in statusOrder.
	Statuses []Count

	// Methods counts successful results per extraction method, most used first.
	Methods []Count

	// Failures lists error and processing_error results sorted by URL.
	Failures []Failure
}

// NewSummary builds a Summary from results.
func NewSummary(source string, results map[string]model.Result) *Summary {
	s := &Summary{Source: source, Total: len(results)}

	byStatus := make(map[model.Status]int)
	byMethod := make(map[string]int)
	for u, r := range results {
		byStatus[r.Status]++
		switch r.Status {
		case model.StatusSuccess:
			byMethod[r.ExtractionMethod]++
		case model.StatusFetchError, model.StatusProcessingError:
			s.Failures = append(s.Failures, Failure{URL: u, Status: r.Status, Message: r.ErrorMessage})
		}
	}

	for _, st := range statusOrder {
		s.Statuses = append(s.Statuses, Count{Label: string(st), N: byStatus[st]})
	}

	for _, m := range slices.Sorted(maps.Keys(byMethod)) {
		s.Methods = append(s.Methods, Count{Label: m, N: byMethod[m]})
	}
	slices.SortStableFunc(s.Methods, func(a, b Count) int {
		return cmp.Compare(b.N, a.N)
	})

	slices.SortFunc(s.Failures, func(a, b Failure) int {
		return cmp.Compare(a.URL, b.URL)
	})

	return s
}

// Succeeded returns the number of success results.
func (s *Summary) Succeeded() int {
	for _, c := range s.Statuses {
		if c.Label == string(model.StatusSuccess) {
			return c.N
		}
	}
	return 0
}

// MarkdownWriter renders a Summary as Markdown.
type MarkdownWriter struct {
	baseWriter

	// maxFailures caps the failure table; 0 lists all of them.
	maxFailures int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxFailures limits the number of failed URLs listed.
func WithMaxFailures(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxFailures = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Snapshot", "`" + s.Source + "`"},
			{"URLs", strconv.Itoa(s.Total)},
		},
	})
	md.PlainText("")

	w.writeStatuses(md, s)
	w.writeMethods(md, s)
	w.writeFailures(md, s)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecrawl](https://github.com/nao1215/sitecrawl)*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeStatuses(md *markdown.Markdown, s *Summary) {
	md.H2("Results by Status")
	md.PlainText("")

	rows := make([][]string, 0, len(s.Statuses)+1)
	for _, c := range s.Statuses {
		rows = append(rows, []string{statusLabel(c.Label), strconv.Itoa(c.N)})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(s.Total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case s.Total == 0:
		md.Note("The snapshot holds no results.")
	case s.Succeeded() == s.Total:
		md.Tip("Every URL was extracted successfully.")
	case len(s.Failures) > 0:
		md.Warningf("%d URL(s) failed to fetch or parse.", len(s.Failures))
	default:
		md.Note("Some URLs were skipped because they are not HTML.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeMethods(md *markdown.Markdown, s *Summary) {
	md.H2("Extraction Methods")
	md.PlainText("")

	if len(s.Methods) == 0 {
		md.PlainText("No page was extracted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Methods))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Extraction Method Distribution"),
		piechart.WithShowData(true),
	)
	for i, c := range s.Methods {
		rows[i] = []string{"`" + c.Label + "`", strconv.Itoa(c.N)}
		chart.LabelAndIntValue(c.Label, uint64(c.N)) //nolint:gosec // counts are non-negative
	}

	md.Table(markdown.TableSet{
		Header: []string{"Method", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *Summary) {
	md.H2("Failed URLs")
	md.PlainText("")

	if len(s.Failures) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	failures := s.Failures
	if w.maxFailures > 0 && len(failures) > w.maxFailures {
		failures = failures[:w.maxFailures]
	}

	rows := make([][]string, len(failures))
	for i, f := range failures {
		rows[i] = []string{f.URL, statusLabel(string(f.Status)), truncateString(f.Message, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	if rest := len(s.Failures) - len(failures); rest > 0 {
		md.PlainTextf("... and %d more.", rest)
		md.PlainText("")
	}
}

// statusLabel turns a status value such as "skipped_non_html" into "Skipped Non Html".
func statusLabel(status string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(status, "_", " "))
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
