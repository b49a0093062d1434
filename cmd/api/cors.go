package main

import (
	"net/url"
	"strings"
)

// matchCORSOrigin reports whether origin is allowed by any of patterns.
// A pattern is "*", an exact origin, or a subdomain wildcard such as "https://*.example.com".
// Wildcards require the same scheme and do not match the bare domain.
func matchCORSOrigin(origin string, patterns []string) bool {
	if origin == "" {
		return false
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case p == "*":
			return true
		case strings.EqualFold(p, origin):
			return true
		}

		scheme, rest, ok := strings.Cut(p, "://")
		if !ok || !strings.HasPrefix(rest, "*.") {
			continue
		}
		suffix := strings.ToLower(rest[1:]) // ".example.com"
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		if !strings.EqualFold(u.Scheme, scheme) {
			continue
		}
		host := strings.ToLower(u.Host)
		if len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
