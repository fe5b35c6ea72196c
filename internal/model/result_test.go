package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestStatusValid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status   Status
		expected bool
	}{
		{StatusSuccess, true},
		{StatusSkippedNonHTML, true},
		{StatusFetchError, true},
		{StatusProcessingError, true},
		{Status("pending"), false},
		{Status(""), false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			t.Parallel()
			if got := tc.status.Valid(); got != tc.expected {
				t.Errorf("Valid() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

// encode marshals like the snapshot writer, without HTML escaping.
func encode(t *testing.T, r Result) string {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func TestResultJSON(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name:   "success carries text, title and method only",
			result: NewSuccess("Hello World", "Home", "<main> tag"),
			want:   `{"status":"success","text":"Hello World","title":"Home","extraction_method":"<main> tag"}`,
		},
		{
			name:   "success with empty text keeps the text key",
			result: NewSuccess("", "T", "<main> tag"),
			want:   `{"status":"success","text":"","title":"T","extraction_method":"<main> tag"}`,
		},
		{
			name:   "skipped carries content type",
			result: NewSkippedNonHTML("application/pdf"),
			want:   `{"status":"skipped_non_html","content_type":"application/pdf"}`,
		},
		{
			name:   "skipped without content type keeps the key",
			result: NewSkippedNonHTML(""),
			want:   `{"status":"skipped_non_html","content_type":""}`,
		},
		{
			name:   "fetch error carries error_message only",
			result: NewFetchError("boom"),
			want:   `{"status":"error","error_message":"boom"}`,
		},
		{
			name:   "processing error carries error_message only",
			result: NewProcessingError("boom"),
			want:   `{"status":"processing_error","error_message":"boom"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := encode(t, tc.result); got != tc.want {
				t.Errorf("got %s\nwant %s", got, tc.want)
			}
		})
	}

	t.Run("empty title becomes the sentinel", func(t *testing.T) {
		t.Parallel()

		r := NewSuccess("x", "", "m")
		if r.Title != NoTitle {
			t.Errorf("expected %q, got %q", NoTitle, r.Title)
		}
	})

	t.Run("decodes back into the same result", func(t *testing.T) {
		t.Parallel()

		want := NewSuccess("", "T", "m")
		var got Result
		if err := json.Unmarshal([]byte(encode(t, want)), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})
}

func TestSnapshotCountByStatus(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{Results: map[string]Result{
		"https://a.test/":  NewSuccess("a", "A", "m"),
		"https://a.test/b": NewSuccess("b", "B", "m"),
		"https://a.test/c": NewFetchError("timeout"),
	}}

	counts := snap.CountByStatus()
	if counts[StatusSuccess] != 2 {
		t.Errorf("expected 2 successes, got %d", counts[StatusSuccess])
	}
	if counts[StatusFetchError] != 1 {
		t.Errorf("expected 1 error, got %d", counts[StatusFetchError])
	}
	if counts[StatusProcessingError] != 0 {
		t.Errorf("expected 0 processing errors, got %d", counts[StatusProcessingError])
	}
}
