package feed

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ParseTarget validates a caller-supplied URL. It must be present, start
// with "http", parse as an absolute http or https URL with a host, and,
// when allowedHosts is non-empty, have a host matching one of its glob
// patterns (for example "*.example.com").
func ParseTarget(raw string, allowedHosts []string) (*url.URL, error) {
	if raw == "" {
		return nil, ErrMissingURL
	}
	if !strings.HasPrefix(raw, "http") {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, ErrInvalidURL
	}
	if len(allowedHosts) > 0 && !hostAllowed(strings.ToLower(u.Hostname()), allowedHosts) {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return u, nil
}

func hostAllowed(host string, patterns []string) bool {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(strings.ToLower(strings.TrimSpace(pattern)), host)
		if err == nil && ok {
			return true
		}
	}
	return false
}
