package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/sitecrawl/internal/model"
)

// JSONWriter writes the result map of a snapshot to a file.
//
// The file is never written in place: the snapshot goes to a temporary
// file in the same directory, is synced, and is renamed over the target,
// so a crash leaves either the previous snapshot or the new one.
type JSONWriter struct {
	path string

	// indentString is the indentation of each level; empty means compact.
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent sets the indentation string. An empty string writes compact JSON.
func WithIndent(indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indentString = indent
	}
}

// NewJSONWriter creates a JSONWriter targeting path, indented with two spaces.
func NewJSONWriter(path string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		path:         path,
		indentString: "  ",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Path returns the target file.
func (w *JSONWriter) Path() string {
	return w.path
}

// Checkpoint replaces the target file with the results of snap.
func (w *JSONWriter) Checkpoint(_ context.Context, snap *model.Snapshot) error {
	if err := w.WriteFile(snap.Results); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// WriteFile atomically replaces the target file with results.
func (w *JSONWriter) WriteFile(results map[string]model.Result) (err error) {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()           //nolint:errcheck // already failing
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	if err = w.Encode(tmp, results); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), w.path)
}

// Encode writes results as one JSON object keyed by URL. Keys are sorted
// and non-ASCII text is written as is.
func (w *JSONWriter) Encode(out io.Writer, results map[string]model.Result) error {
	if results == nil {
		results = map[string]model.Result{}
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if w.indentString != "" {
		enc.SetIndent("", w.indentString)
	}
	return enc.Encode(results)
}

// ReadSnapshot loads a result map written by JSONWriter.
func ReadSnapshot(path string) (map[string]model.Result, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var results map[string]model.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%s is not a crawl snapshot: %w", path, err)
	}
	if results == nil {
		results = map[string]model.Result{}
	}
	return results, nil
}
