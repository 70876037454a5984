// Package scope canonicalizes URLs and keeps the crawl on the target host.
package scope

import (
	"fmt"
	"net/url"
	"strings"
)

// skippedPrefixes are link forms that never lead to a fetchable page.
var skippedPrefixes = []string{"javascript:", "mailto:", "tel:", "data:", "#"}

// Normalizer resolves links against their page and decides whether they
// belong to the target host.
type Normalizer struct {
	scheme string
	host   string
}

// PrepareTarget turns user input into a base URL: whitespace trimmed,
// http:// added when no scheme is given, trailing slashes removed.
func PrepareTarget(raw string) string {
	target := strings.TrimSpace(raw)
	lower := strings.ToLower(target)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		target = "http://" + target
	}
	return strings.TrimRight(target, "/")
}

// NewNormalizer creates a normalizer rooted at target.
func NewNormalizer(target string) (*Normalizer, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("target %q has no host", target)
	}

	return &Normalizer{
		scheme: strings.ToLower(parsed.Scheme),
		host:   strings.ToLower(parsed.Host),
	}, nil
}

// Host returns the root host, port included when present.
func (n *Normalizer) Host() string {
	return n.host
}

// SameDomain reports whether u points at the root host. Subdomains are a
// different domain. A URL without a host is relative and therefore local.
func (n *Normalizer) SameDomain(u *url.URL) bool {
	if u.Host == "" {
		return true
	}
	return strings.EqualFold(u.Host, n.host)
}

// InScope is SameDomain for a raw URL.
func (n *Normalizer) InScope(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return n.SameDomain(parsed)
}

// Resolve turns link into an absolute, fragment-free URL relative to base.
// Query values are kept. It reports false for links that cannot be followed
// or that leave the root host.
func (n *Normalizer) Resolve(link, base string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}

	lower := strings.ToLower(link)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", false
	}

	resolved := baseURL.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if !n.SameDomain(resolved) {
		return "", false
	}

	return resolved.String(), true
}

// Normalize resolves link and returns its canonical identity.
func (n *Normalizer) Normalize(link, base string) (string, bool) {
	resolved, ok := n.Resolve(link, base)
	if !ok {
		return "", false
	}

	canonical, err := Canonical(resolved)
	if err != nil {
		return "", false
	}
	return canonical, true
}

// Canonical reduces an absolute URL to scheme, host, path and the sorted
// set of query parameter names. Values are dropped so that pages differing
// only in parameter values share one identity.
func Canonical(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.ForceQuery = false

	if parsed.Path == "" {
		parsed.Path = "/"
		parsed.RawPath = ""
	}

	// ParseQuery keeps the pairs it could decode even when it reports an error.
	values, _ := url.ParseQuery(parsed.RawQuery)
	names := make(url.Values, len(values))
	for name := range values {
		names.Set(name, "")
	}
	parsed.RawQuery = names.Encode()

	return parsed.String(), nil
}
