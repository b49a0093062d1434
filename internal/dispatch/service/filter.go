package service

import "strings"

// DefaultThrowawayDomains are rejected when no list is configured.
var DefaultThrowawayDomains = []string{
	"tempmail.com",
	"throwawaymail.com",
	"temp-mail.org",
	"tempmail.net",
	"disposablemail.com",
}

// DomainFilter rejects recipients whose domain is on a static list.
// Matching is exact and case-insensitive; subdomains are not matched.
type DomainFilter struct {
	domains map[string]struct{}
}

// NewDomainFilter builds a filter. A nil list uses DefaultThrowawayDomains; an empty non-nil list rejects nothing.
func NewDomainFilter(domains []string) *DomainFilter {
	if domains == nil {
		domains = DefaultThrowawayDomains
	}
	f := &DomainFilter{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			f.domains[d] = struct{}{}
		}
	}
	return f
}

// IsRejected reports whether the text after the first "@" is a listed domain.
// An address without "@" has an empty domain and is never rejected.
func (f *DomainFilter) IsRejected(address string) bool {
	_, domain, ok := strings.Cut(address, "@")
	if !ok {
		return false
	}
	_, listed := f.domains[strings.ToLower(domain)]
	return listed
}
