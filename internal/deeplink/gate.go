package deeplink

import "strings"

// DefaultCallbackMarkers are the host/path values of the app's own callback
// route.
var DefaultCallbackMarkers = []string{"auth-callback", "auth/callback"}

// Gate decides whether a link should enter the reconciliation flow.
type Gate struct {
	markers   map[string]struct{}
	extractor *Extractor
}

// NewGate creates a Gate for the given callback markers.
func NewGate(markers []string, extractor *Extractor) *Gate {
	if len(markers) == 0 {
		markers = DefaultCallbackMarkers
	}
	set := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.Trim(m, "/"))
		if m != "" {
			set[m] = struct{}{}
		}
	}
	return &Gate{markers: set, extractor: extractor}
}

// IsAuthLink reports whether l carries authentication artifacts. Links that
// do not match are simply not ours.
func (g *Gate) IsAuthLink(l *Link) bool {
	if l == nil {
		return false
	}
	if _, ok := g.markers[strings.ToLower(l.Route())]; ok {
		return true
	}
	if host := strings.Trim(l.Host, "/"); host != "" {
		if _, ok := g.markers[host]; ok {
			return true
		}
	}
	if g.extractor != nil && g.extractor.IsVerifyURL(l.Raw) {
		return true
	}
	switch strings.ToLower(l.Params[ParamType]) {
	case "recovery", "signup":
		return true
	}
	return false
}
