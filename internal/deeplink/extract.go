package deeplink

import (
	"net/url"
	"strings"
)

// DefaultVerifyEndpoints matches the identity provider's hosted verification
// URL.
var DefaultVerifyEndpoints = []string{"/auth/v1/verify"}

// Extractor flattens incoming URLs into Links.
type Extractor struct {
	verifyEndpoints []string
}

// NewExtractor creates an Extractor. URLs containing any of verifyEndpoints
// are treated as provider verification URLs.
func NewExtractor(verifyEndpoints []string) *Extractor {
	if len(verifyEndpoints) == 0 {
		verifyEndpoints = DefaultVerifyEndpoints
	}
	return &Extractor{verifyEndpoints: verifyEndpoints}
}

// Parse builds a Link from raw. It never fails: components that cannot be
// parsed contribute no parameters.
func (e *Extractor) Parse(raw string) *Link {
	raw = strings.TrimSpace(raw)
	link := &Link{Raw: raw, Params: Params{}}

	rest, fragment, _ := strings.Cut(raw, "#")
	_, query, _ := strings.Cut(rest, "?")

	overlay(link.Params, query)
	overlay(link.Params, fragment)

	if u, err := url.Parse(raw); err == nil {
		link.Scheme = strings.ToLower(u.Scheme)
		link.Host = strings.ToLower(u.Host)
		link.Path = u.Path
		if e.IsVerifyURL(raw) {
			fillVerifyParams(link.Params, u)
		}
	}

	return link
}

// IsVerifyURL reports whether raw points at a provider verification endpoint.
func (e *Extractor) IsVerifyURL(raw string) bool {
	for _, marker := range e.verifyEndpoints {
		if marker != "" && strings.Contains(raw, marker) {
			return true
		}
	}
	return false
}

// overlay parses one URL-encoded component onto dst. Repeated keys resolve
// to the last occurrence, and a malformed component is skipped as a whole.
func overlay(dst Params, component string) {
	if component == "" {
		return
	}
	values, err := url.ParseQuery(component)
	if err != nil {
		return
	}
	for key, vals := range values {
		if key == "" || len(vals) == 0 {
			continue
		}
		dst[key] = vals[len(vals)-1]
	}
}

// fillVerifyParams copies token, type and redirect_to from a verification
// URL's own query without overriding what the fragment already supplied.
func fillVerifyParams(dst Params, u *url.URL) {
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return
	}
	for _, key := range []string{ParamToken, ParamType, ParamRedirectTo} {
		if dst[key] != "" {
			continue
		}
		if v := q.Get(key); v != "" {
			dst[key] = v
		}
	}
}
