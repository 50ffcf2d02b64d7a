package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/deeplink"
	"github.com/brizzai/tigoplanes/internal/requester"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestProvider(t *testing.T, mux *http.ServeMux) *GoTrueProvider {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewGoTrueProvider(requester.New(&config.BackendConfig{URL: server.URL, AnonKey: "anon", Timeout: "5s"}))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGoTrueProvider_SignInWithPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["password"] != "secret1" {
			writeJSON(t, w, http.StatusBadRequest, map[string]any{
				"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials",
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"expires_at":    1900000000,
			"refresh_token": "refresh-1",
			"user":          map[string]any{"id": "u1", "email": body["email"]},
		})
	})
	p := newTestProvider(t, mux)

	sess, err := p.SignInWithPassword(context.Background(), "maria@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", sess.AccessToken())
	assert.Equal(t, "refresh-1", sess.RefreshToken())
	assert.Equal(t, time.Unix(1900000000, 0), sess.Token.Expiry)
	assert.Equal(t, "u1", sess.UserID())

	_, err = p.SignInWithPassword(context.Background(), "maria@example.com", "wrong")
	var apiErr *requester.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
}

func TestGoTrueProvider_SignUp(t *testing.T) {
	t.Run("confirmation pending returns bare user", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "tigoplanes://auth-callback", r.URL.Query().Get("redirect_to"))
			var body struct {
				Email string         `json:"email"`
				Data  map[string]any `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "usuario_registrado", body.Data["rol"])
			writeJSON(t, w, http.StatusOK, map[string]any{"id": "u2", "email": body.Email})
		})
		p := newTestProvider(t, mux)

		principal, sess, err := p.SignUp(context.Background(), SignUpParams{
			Email:      "new@example.com",
			Password:   "secret1",
			Metadata:   map[string]any{"rol": "usuario_registrado"},
			RedirectTo: "tigoplanes://auth-callback",
		})
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Equal(t, "u2", principal.ID)
	})

	t.Run("auto confirmed returns session", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"access_token": "a", "refresh_token": "r", "expires_in": 60,
				"user": map[string]any{"id": "u3", "email": "x@example.com"},
			})
		})
		p := newTestProvider(t, mux)
		fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		p.now = func() time.Time { return fixed }

		principal, sess, err := p.SignUp(context.Background(), SignUpParams{Email: "x@example.com", Password: "secret1"})
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, "u3", principal.ID)
		assert.Equal(t, fixed.Add(time.Minute), sess.Token.Expiry)
	})

	t.Run("already registered", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{
				"code": 422, "error_code": "user_already_exists", "msg": "User already registered",
			})
		})
		p := newTestProvider(t, mux)

		_, _, err := p.SignUp(context.Background(), SignUpParams{Email: "x@example.com", Password: "secret1"})
		var apiErr *requester.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "User already registered", apiErr.Message)
	})
}

func TestGoTrueProvider_VerifyOTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/verify", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "xyz", body["token_hash"])
		assert.Equal(t, "signup", body["type"])
		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token": "a", "refresh_token": "r", "expires_at": 1900000000,
			"user": map[string]any{"id": "u1"},
		})
	})
	p := newTestProvider(t, mux)

	sess, err := p.VerifyOTP(context.Background(), "xyz", deeplink.OTPSignup)
	require.NoError(t, err)
	assert.Equal(t, "a", sess.AccessToken())
}

func TestGoTrueProvider_UserCallsCarryUserToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-access", r.Header.Get("Authorization"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Method == http.MethodPut {
			var attrs UserAttributes
			require.NoError(t, json.NewDecoder(r.Body).Decode(&attrs))
			assert.Equal(t, "newsecret", attrs.Password)
			assert.Empty(t, attrs.Email)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"id": "u1", "email": "maria@example.com"})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-access", r.Header.Get("Authorization"))
		assert.Equal(t, "local", r.URL.Query().Get("scope"))
		w.WriteHeader(http.StatusNoContent)
	})
	p := newTestProvider(t, mux)
	ctx := context.Background()

	principal, err := p.GetUser(ctx, "user-access")
	require.NoError(t, err)
	assert.Equal(t, "u1", principal.ID)

	_, err = p.UpdateUser(ctx, "user-access", UserAttributes{Password: "newsecret"})
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, "user-access", ScopeLocal))
}

func TestGoTrueProvider_ResetPasswordForEmail(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/recover", func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "tigoplanes://auth-callback", r.URL.Query().Get("redirect_to"))
		writeJSON(t, w, http.StatusOK, map[string]any{})
	})
	p := newTestProvider(t, mux)

	require.NoError(t, p.ResetPasswordForEmail(context.Background(), "maria@example.com", "tigoplanes://auth-callback"))
	assert.True(t, called)
}

func TestExpiryOf(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, err := ExpiryOf(signedToken(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	// Expired tokens still parse: the caller decides to refresh.
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	got, err = ExpiryOf(signedToken(t, past))
	require.NoError(t, err)
	assert.True(t, past.Equal(got))

	_, err = ExpiryOf("not-a-jwt")
	assert.Error(t, err)
}
