package frontier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// ErrInvalidURL is returned when a reference cannot be resolved to an
// absolute URL with a host.
var ErrInvalidURL = errors.New("invalid URL")

// normalizeFlags are the purell canonicalizations that never change which
// resource a URL points to.
const normalizeFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagUppercaseEscapes |
	purell.FlagDecodeUnnecessaryEscapes |
	purell.FlagEncodeNecessaryEscapes |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveEmptyQuerySeparator |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveEmptyPortSeparator |
	purell.FlagRemoveUnnecessaryHostDots |
	purell.FlagRemoveFragment

// Normalize resolves raw against base (when base is non-empty) and returns
// the canonical string form used for identity comparisons.
//
// An empty path becomes "/" so that "https://host" and "https://host/"
// are the same entity; any other path loses one trailing slash.
func Normalize(raw, base string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}

	if base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("%w: base %q: %v", ErrInvalidURL, base, err)
		}
		ref = b.ResolveReference(ref)
	}

	if !ref.IsAbs() || ref.Host == "" || ref.Opaque != "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidURL, raw)
	}

	u, err := url.Parse(purell.NormalizeURL(ref, normalizeFlags))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	u.Fragment = ""
	u.RawFragment = ""

	switch {
	case u.Path == "":
		u.Path = "/"
		u.RawPath = ""
	case u.Path != "/" && strings.HasSuffix(u.Path, "/"):
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}

	return u.String(), nil
}

// Host returns the host (with port, if any) of a normalized URL.
// It is the value IsInScope compares against.
func Host(normalized string) (string, error) {
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, normalized, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, normalized)
	}
	return u.Host, nil
}
