package requester

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequester(t *testing.T, handler http.HandlerFunc) *HTTPRequester {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(&config.BackendConfig{URL: server.URL + "/", AnonKey: "anon-key", Timeout: "5s"})
}

func TestHTTPRequester(t *testing.T) {
	tests := []struct {
		name           string
		ctx            context.Context
		request        *Request
		serverResponse func(t *testing.T, w http.ResponseWriter, r *http.Request)
		checkResponse  func(t *testing.T, response *Response, err error)
	}{
		{
			name:    "GET with query and anonymous auth",
			ctx:     context.Background(),
			request: &Request{Path: "/rest/v1/planes_moviles", Query: url.Values{"activo": {"eq.true"}}},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/rest/v1/planes_moviles", r.URL.Path)
				assert.Equal(t, "eq.true", r.URL.Query().Get("activo"))
				assert.Equal(t, "anon-key", r.Header.Get("apikey"))
				assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(`[{"id":"1"}]`))
			},
			checkResponse: func(t *testing.T, response *Response, err error) {
				require.NoError(t, err)
				assert.True(t, response.OK())
				var rows []map[string]string
				require.NoError(t, response.Decode(&rows))
				assert.Equal(t, "1", rows[0]["id"])
			},
		},
		{
			name: "POST JSON as the context user",
			ctx:  ContextWithToken(context.Background(), "user-token"),
			request: &Request{
				Method:  http.MethodPost,
				Path:    "auth/v1/user",
				Body:    map[string]string{"password": "secret1"},
				Headers: map[string]string{"Prefer": "return=representation"},
			},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
				assert.Equal(t, "anon-key", r.Header.Get("apikey"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "secret1", body["password"])
				w.WriteHeader(http.StatusCreated)
			},
			checkResponse: func(t *testing.T, response *Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, http.StatusCreated, response.StatusCode)
				assert.Empty(t, response.Body)
			},
		},
		{
			name: "raw body keeps its content type",
			ctx:  context.Background(),
			request: &Request{
				Method:      http.MethodPost,
				Path:        "/storage/v1/object/bucket/a.png",
				RawBody:     stringsReader("png-bytes"),
				ContentType: "image/png",
			},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
				b, _ := io.ReadAll(r.Body)
				assert.Equal(t, "png-bytes", string(b))
			},
			checkResponse: func(t *testing.T, response *Response, err error) {
				require.NoError(t, err)
				assert.True(t, response.OK())
			},
		},
		{
			name:    "error status is a response, not an error",
			ctx:     context.Background(),
			request: &Request{Path: "/missing"},
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			checkResponse: func(t *testing.T, response *Response, err error) {
				require.NoError(t, err)
				assert.False(t, response.OK())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRequester(t, func(w http.ResponseWriter, req *http.Request) {
				tt.serverResponse(t, w, req)
			})
			resp, err := r.Do(tt.ctx, tt.request)
			tt.checkResponse(t, resp, err)
		})
	}
}

func TestHTTPRequester_Timeout(t *testing.T) {
	r := newTestRequester(t, func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	r.SetTimeout(20 * time.Millisecond)

	_, err := r.Do(context.Background(), &Request{Path: "/slow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestDoJSON(t *testing.T) {
	t.Run("decodes success", func(t *testing.T) {
		r := newTestRequester(t, func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(`{"id":"u1"}`))
		})
		var out struct {
			ID string `json:"id"`
		}
		require.NoError(t, DoJSON(context.Background(), r, &Request{Path: "/x"}, &out))
		assert.Equal(t, "u1", out.ID)
	})

	t.Run("returns API error", func(t *testing.T) {
		r := newTestRequester(t, func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
		})
		err := DoJSON(context.Background(), r, &Request{Path: "/x"}, nil)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "invalid_credentials", apiErr.Code)
		assert.Equal(t, "Invalid login credentials", apiErr.Message)
	})
}
