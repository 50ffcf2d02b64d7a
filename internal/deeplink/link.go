// Package deeplink turns OS-delivered URLs into authentication intakes.
//
// A raw URL goes through three steps: the Extractor flattens query and
// fragment parameters into Params, the Gate decides whether the URL is an
// authentication link at all, and Classify picks the Intake variant that the
// reconciliation flow acts on.
package deeplink

import (
	"sort"
	"strings"
)

// Recognized intake parameter names.
const (
	ParamAccessToken       = "access_token"
	ParamRefreshToken      = "refresh_token"
	ParamToken             = "token"
	ParamTokenHash         = "token_hash"
	ParamConfirmationToken = "confirmation_token"
	ParamRecoveryToken     = "recovery_token"
	ParamType              = "type"
	ParamEventType         = "event_type"
	ParamError             = "error"
	ParamErrorDescription  = "error_description"
	ParamRedirectTo        = "redirect_to"
)

// Params is the flat key/value view of one incoming link.
type Params map[string]string

// Present reports whether key was delivered at all, even without a value.
func (p Params) Present(key string) bool {
	_, ok := p[key]
	return ok
}

// Has reports whether key is present with a non-empty value.
func (p Params) Has(key string) bool {
	return p[key] != ""
}

// First returns the first non-empty value among keys.
func (p Params) First(keys ...string) string {
	for _, k := range keys {
		if v := p[k]; v != "" {
			return v
		}
	}
	return ""
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Link is an incoming URL after parameter extraction. It is never mutated
// once built.
type Link struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Params Params
}

// Route is host and path joined without surrounding slashes, so that
// "app://auth-callback", "app:///auth-callback" and "https://x/auth-callback"
// compare the same way.
func (l *Link) Route() string {
	path := strings.Trim(l.Path, "/")
	if l.Scheme == "http" || l.Scheme == "https" {
		return path
	}
	host := strings.Trim(l.Host, "/")
	switch {
	case host == "":
		return path
	case path == "":
		return host
	default:
		return host + "/" + path
	}
}
