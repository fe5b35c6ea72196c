package model

import (
	"bytes"
	"encoding/json"
)

// Status is the outcome class of a crawled URL.
// The string values are part of the snapshot file format.
type Status string

const (
	// StatusSuccess means the page was fetched, parsed and its text extracted.
	StatusSuccess Status = "success"

	// StatusSkippedNonHTML means the page was fetched but its content type
	// was not text/html, so it was neither parsed nor harvested for links.
	StatusSkippedNonHTML Status = "skipped_non_html"

	// StatusFetchError covers timeouts, transport failures and non-2xx responses.
	StatusFetchError Status = "error"

	// StatusProcessingError means the fetch succeeded but parsing or
	// extraction failed.
	StatusProcessingError Status = "processing_error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusSkippedNonHTML, StatusFetchError, StatusProcessingError:
		return true
	default:
		return false
	}
}

// NoTitle is stored when a page has no <title> or an empty one.
const NoTitle = "No Title Found"

// Result is the record kept for one normalized URL.
// The JSON encoding always carries the fields of its Status, even when
// empty, and never the fields of the other statuses.
type Result struct {
	// Status is the outcome class.
	Status Status `json:"status"`

	// Text is the extracted main-content text (success only).
	Text string `json:"text,omitempty"`

	// Title is the trimmed document title or NoTitle (success only).
	Title string `json:"title,omitempty"`

	// ExtractionMethod names the strategy that located the content (success only).
	ExtractionMethod string `json:"extraction_method,omitempty"`

	// ContentType is the response content type (skipped_non_html only).
	ContentType string `json:"content_type,omitempty"`

	// ErrorMessage describes the failure (error and processing_error only).
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewSuccess returns a success result.
func NewSuccess(text, title, method string) Result {
	if title == "" {
		title = NoTitle
	}
	return Result{
		Status:           StatusSuccess,
		Text:             text,
		Title:            title,
		ExtractionMethod: method,
	}
}

// NewSkippedNonHTML returns a result for a non-HTML response.
func NewSkippedNonHTML(contentType string) Result {
	return Result{Status: StatusSkippedNonHTML, ContentType: contentType}
}

// NewFetchError returns a result for a failed fetch.
func NewFetchError(message string) Result {
	return Result{Status: StatusFetchError, ErrorMessage: message}
}

// NewProcessingError returns a result for a parse or extraction failure.
func NewProcessingError(message string) Result {
	return Result{Status: StatusProcessingError, ErrorMessage: message}
}

// MarshalJSON encodes the fields that belong to r.Status.
// HTML characters are kept raw like the rest of the snapshot.
func (r Result) MarshalJSON() ([]byte, error) {
	var v any
	switch r.Status {
	case StatusSuccess:
		v = struct {
			Status           Status `json:"status"`
			Text             string `json:"text"`
			Title            string `json:"title"`
			ExtractionMethod string `json:"extraction_method"`
		}{r.Status, r.Text, r.Title, r.ExtractionMethod}
	case StatusSkippedNonHTML:
		v = struct {
			Status      Status `json:"status"`
			ContentType string `json:"content_type"`
		}{r.Status, r.ContentType}
	case StatusFetchError, StatusProcessingError:
		v = struct {
			Status       Status `json:"status"`
			ErrorMessage string `json:"error_message"`
		}{r.Status, r.ErrorMessage}
	default:
		type plain Result
		v = plain(r)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
