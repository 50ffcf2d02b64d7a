package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/utils"
	"go.uber.org/zap"
)

// authContextKey is the key type for the context
type authContextKey string

const (
	// UserContextKey is used to store the signed-in user in the request context
	UserContextKey authContextKey = "user"
)

// UserFromContext returns the user stored by RequireUser.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// RequireUser rejects requests while nobody is signed in and stores the
// current user in the request context otherwise.
func RequireUser(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := svc.CurrentUser(r.Context())
			if err != nil {
				logger.Warn("Failed to resolve current user",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				utils.WriteServiceError(w, err)
				return
			}
			if user == nil {
				writeUnauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORS allows the configured origins; "*" allows any.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAny = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := allowed[origin]; ok || allowAny {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
					w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, WWW-Authenticate")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	msg := auth.UserMessage(auth.ErrNotAuthenticated)
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="tigoplanes", error="not_authenticated", error_description="%s"`, msg))
	utils.WriteError(w, "not_authenticated", msg, http.StatusUnauthorized)
}
