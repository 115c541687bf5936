package shared

import (
	"fmt"
	"net/url"
	"strings"
)

const canonicalWatchURL = "https://www.youtube.com/watch?v="

// NormalizeURL rewrites recognised video links to the canonical watch URL carrying only the video id.
//
// Long-form links (any *youtube.com host with a /watch path and a v parameter) and short links
// (youtu.be/ID) are rewritten. Anything else, including input that does not parse as an absolute
// URL, is returned unchanged. Normalizing a canonical URL returns it unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case strings.Contains(host, "youtube.com") && u.Path == "/watch":
		id = u.Query().Get("v")
	case host == "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	}

	if id == "" {
		return raw
	}
	return canonicalWatchURL + url.QueryEscape(id)
}

// ValidateSourceURL checks that raw is an absolute http(s) URL and returns its normalized form.
func ValidateSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url", ErrMissingArgument)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: unparseable url %q", ErrInvalidInput, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: url must use http or https, got %q", ErrInvalidInput, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidInput, raw)
	}

	return NormalizeURL(raw), nil
}
