package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/brizzai/tigoplanes/internal/config"
	"go.uber.org/fx"
)

// HTTPRequestBuilderParams holds the parameters for creating an HTTPRequestBuilder
type HTTPRequestBuilderParams struct {
	fx.In

	BackendConfig *config.BackendConfig
	AuthManager   AuthManager
}

// HTTPRequestBuilder turns Requests into authenticated *http.Request values
type HTTPRequestBuilder struct {
	baseURL string
	authMgr AuthManager
}

// NewHTTPRequestBuilder creates a new HTTPRequestBuilder
func NewHTTPRequestBuilder(params HTTPRequestBuilderParams) *HTTPRequestBuilder {
	return &HTTPRequestBuilder{
		baseURL: strings.TrimRight(params.BackendConfig.URL, "/"),
		authMgr: params.AuthManager,
	}
}

// BuildRequest builds the HTTP request for req
func (b *HTTPRequestBuilder) BuildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := b.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body, contentType, err := b.createRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if err := b.authMgr.ApplyAuth(httpReq); err != nil {
		return nil, fmt.Errorf("failed to apply authentication: %w", err)
	}
	return httpReq, nil
}

func (b *HTTPRequestBuilder) createRequestBody(req *Request) (io.Reader, string, error) {
	if req.RawBody != nil {
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return req.RawBody, contentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	jsonData, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(jsonData), "application/json", nil
}
