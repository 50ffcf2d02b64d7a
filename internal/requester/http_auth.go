package requester

import (
	"context"
	"net/http"

	"github.com/brizzai/tigoplanes/internal/config"
)

type tokenKey struct{}

// ContextWithToken makes requests built from ctx act as the given user.
func ContextWithToken(ctx context.Context, accessToken string) context.Context {
	return context.WithValue(ctx, tokenKey{}, accessToken)
}

// TokenFromContext returns the user access token carried by ctx, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// HTTPAuthManager sends the project key on every request and authorizes as
// the user from the request context, or anonymously.
type HTTPAuthManager struct {
	anonKey string
}

// NewHTTPAuthManager creates a new HTTPAuthManager
func NewHTTPAuthManager(cfg *config.BackendConfig) *HTTPAuthManager {
	return &HTTPAuthManager{anonKey: cfg.AnonKey}
}

// ApplyAuth adds authentication to the request
func (a *HTTPAuthManager) ApplyAuth(req *http.Request) error {
	req.Header.Set("apikey", a.anonKey)

	bearer := TokenFromContext(req.Context())
	if bearer == "" {
		bearer = a.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return nil
}
