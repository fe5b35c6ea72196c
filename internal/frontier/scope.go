package frontier

import (
	"net/url"
	"strings"
)

// ExcludedExtensions are path suffixes of non-document resources.
// A URL whose path (query ignored, case-insensitive) ends with one of
// these is out of scope.
var ExcludedExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".zip", ".docx", ".xlsx",
	".pptx", ".mp4", ".mov", ".avi", ".svg", ".css", ".js", ".xml",
	".txt", ".ico", ".webp", ".woff", ".woff2", ".ttf", ".eot", ".map",
}

// IsInScope reports whether a normalized URL may be crawled: the scheme is
// http or https, the host equals allowedHost exactly (subdomains are
// different hosts), and the path does not name an excluded file type.
func IsInScope(normalized, allowedHost string) bool {
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if u.Host != allowedHost {
		return false
	}

	return !hasExcludedExtension(u.Path)
}

// hasExcludedExtension checks the path against ExcludedExtensions.
func hasExcludedExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range ExcludedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
