package utils

import (
	"net/url"
	"strings"
)

// SecureRedirectURL validates a redirect URL before it is handed to the
// payment processor. Anything that is missing, unparsable or not https is
// replaced by the configured fallback base plus the fixed path suffix.
func SecureRedirectURL(rawURL, fallbackBase, path string) string {
	fallback := strings.TrimRight(fallbackBase, "/") + path

	if rawURL == "" {
		return fallback
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fallback
	}

	return u.String()
}
